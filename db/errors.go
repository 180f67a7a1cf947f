package db

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrQuotaExceeded means the store refused a write for lack of capacity
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrStorage covers every other serialization or write failure
	ErrStorage = errors.New("storage failure")
)

// IsQuotaExceeded reports whether err was caused by a full store
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// quotaError keeps the backend error text while classifying it as ErrQuotaExceeded
type quotaError struct {
	cause error
}

func (e *quotaError) Error() string        { return ErrQuotaExceeded.Error() + ": " + e.cause.Error() }
func (e *quotaError) Is(target error) bool { return target == ErrQuotaExceeded }
func (e *quotaError) Unwrap() error        { return e.cause }

// storageError is the ErrStorage counterpart of quotaError
type storageError struct {
	cause error
}

func (e *storageError) Error() string        { return ErrStorage.Error() + ": " + e.cause.Error() }
func (e *storageError) Is(target error) bool { return target == ErrStorage }
func (e *storageError) Unwrap() error        { return e.cause }

// classifyRedisError maps a Redis reply error onto the storage taxonomy.
// Redis answers writes beyond maxmemory with an "OOM ..." error.
func classifyRedisError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "OOM ") || strings.Contains(msg, "OOM command not allowed") {
		return &quotaError{cause: err}
	}
	return &storageError{cause: err}
}
