package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edupanel/campus-api/internal/middleware"
	"github.com/edupanel/campus-api/internal/models"
)

// Handlers bundles every request handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Class        *ClassHandler
	Subject      *SubjectHandler
	Schedule     *ScheduleHandler
	Attendance   *AttendanceHandler
	Exam         *ExamHandler
	Fee          *FeeHandler
	Expense      *ExpenseHandler
	Announcement *AnnouncementHandler
	Admission    *AdmissionHandler
	Settings     *SettingsHandler
	Dashboard    *DashboardHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes wires every handler into role-gated route groups under
// the API prefix. The JWT middleware authenticates, RequireRoles
// authorizes; both run before any handler so a rejected request never
// reaches persistence.
func RegisterRoutes(r *gin.Engine, prefix string, validator middleware.TokenValidator, h Handlers) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/oauth", h.Auth.OAuthLogin)
		auth.POST("/refresh", h.Auth.Refresh)

		authed := auth.Group("", middleware.JWT(validator))
		authed.POST("/logout", h.Auth.Logout)
		authed.GET("/me", h.Auth.Me)
	}

	// Public admissions funnel: prospective families have no account.
	admissions := api.Group("/admissions")
	{
		admissions.POST("", h.Admission.Submit)
		admissions.GET("/track/:number", h.Admission.Track)

		staff := admissions.Group("", middleware.JWT(validator), middleware.RequireRoles(models.RoleAdmin))
		staff.GET("", h.Admission.List)
		staff.GET("/:id", h.Admission.Get)
		staff.PUT("/:id/status", h.Admission.UpdateStatus)
	}

	protected := api.Group("", middleware.JWT(validator))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminTeacher := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent, models.RoleParent)

	users := protected.Group("/users", adminOnly)
	{
		users.GET("", h.User.List)
		users.GET("/:id", h.User.Get)
		users.POST("", h.User.Create)
		users.PUT("/:id", h.User.Update)
		users.DELETE("/:id", h.User.Delete)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", adminTeacher, h.Class.List)
		classes.GET("/:id", adminTeacher, h.Class.Get)
		classes.GET("/:id/students", adminTeacher, h.Class.ListStudents)
		classes.POST("", adminOnly, h.Class.Create)
		classes.PUT("/:id", adminOnly, h.Class.Update)
		classes.DELETE("/:id", adminOnly, h.Class.Delete)
		classes.POST("/:id/students", adminOnly, h.Class.EnrollStudents)
		classes.DELETE("/:id/students/:studentId", adminOnly, h.Class.RemoveStudent)
	}

	subjects := protected.Group("/subjects")
	{
		subjects.GET("", anyRole, h.Subject.List)
		subjects.GET("/:id", anyRole, h.Subject.Get)
		subjects.POST("", adminOnly, h.Subject.Create)
		subjects.PUT("/:id", adminOnly, h.Subject.Update)
		subjects.DELETE("/:id", adminOnly, h.Subject.Delete)
	}

	schedules := protected.Group("/schedules")
	{
		schedules.GET("", adminTeacher, h.Schedule.List)
		schedules.GET("/:id", adminTeacher, h.Schedule.Get)
		schedules.POST("", adminOnly, h.Schedule.Create)
		schedules.PUT("/:id", adminOnly, h.Schedule.Update)
		schedules.DELETE("/:id", adminOnly, h.Schedule.Delete)
	}

	attendance := protected.Group("/attendance", adminTeacher)
	{
		attendance.GET("", h.Attendance.List)
		attendance.GET("/export", h.Attendance.Export)
		attendance.GET("/:id", h.Attendance.Get)
		attendance.POST("", h.Attendance.Create)
		attendance.PUT("/:id", h.Attendance.Update)
	}

	exams := protected.Group("/exams", adminTeacher)
	{
		exams.GET("", h.Exam.List)
		exams.GET("/:id", h.Exam.Get)
		exams.POST("", h.Exam.Create)
		exams.PUT("/:id", h.Exam.Update)
		exams.DELETE("/:id", h.Exam.Delete)
		exams.GET("/:id/results", h.Exam.ListResults)
		exams.POST("/:id/results", h.Exam.RecordResult)
	}

	fees := protected.Group("/fees", adminOnly)
	{
		fees.GET("", h.Fee.ListFees)
		fees.GET("/:id", h.Fee.GetFee)
		fees.POST("", h.Fee.CreateFee)
		fees.PUT("/:id", h.Fee.UpdateFee)
		fees.DELETE("/:id", h.Fee.DeleteFee)
	}

	payments := protected.Group("/payments", adminOnly)
	{
		payments.GET("", h.Fee.ListPayments)
		payments.POST("", h.Fee.CreatePayment)
		payments.PUT("/:id/status", h.Fee.UpdatePaymentStatus)
		payments.DELETE("/:id", h.Fee.DeletePayment)
		payments.GET("/:id/receipt", h.Fee.Receipt)
	}

	expenses := protected.Group("/expenses", adminOnly)
	{
		expenses.GET("", h.Expense.List)
		expenses.GET("/:id", h.Expense.Get)
		expenses.POST("", h.Expense.Create)
		expenses.PUT("/:id", h.Expense.Update)
		expenses.PUT("/:id/status", h.Expense.UpdateStatus)
		expenses.DELETE("/:id", h.Expense.Delete)
	}

	announcements := protected.Group("/announcements")
	{
		announcements.GET("", anyRole, h.Announcement.List)
		announcements.GET("/:id", anyRole, h.Announcement.Get)
		announcements.POST("", adminTeacher, h.Announcement.Create)
		announcements.PUT("/:id", adminTeacher, h.Announcement.Update)
		announcements.DELETE("/:id", adminTeacher, h.Announcement.Delete)
	}

	events := protected.Group("/events")
	{
		events.GET("", anyRole, h.Announcement.ListEvents)
		events.GET("/:id", anyRole, h.Announcement.GetEvent)
		events.POST("", adminTeacher, h.Announcement.Create)
		events.PUT("/:id", adminTeacher, h.Announcement.Update)
		events.DELETE("/:id", adminTeacher, h.Announcement.Delete)
	}

	settings := protected.Group("/settings")
	{
		settings.GET("", anyRole, h.Settings.Get)
		settings.PUT("", adminOnly, h.Settings.Update)
	}

	dashboard := protected.Group("/dashboard", adminOnly)
	{
		dashboard.GET("", h.Dashboard.Summary)
	}
}
