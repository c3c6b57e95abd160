package repository

import (
	"errors"

	"github.com/lib/pq"
	"github.com/yourorg/bizledger/internal/domain"
)

// Postgres error codes that indicate a transient conflict worth retrying.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

func storeError(op string, err error) *domain.PersistenceError {
	return domain.NewPersistenceError(op, isTransient(err), err)
}

func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeSerializationFailure, codeDeadlockDetected:
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation
}
