package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update violates a unique
// constraint. Services treat it as a Conflict: the constraint is the
// authoritative guard behind every advisory existence pre-check.
var ErrDuplicate = errors.New("duplicate key")

const pqUniqueViolation = "23505"

// translateError maps driver-level errors onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}
