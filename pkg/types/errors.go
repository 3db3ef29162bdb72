package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no salon or request exists for an id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput covers non-positive day counts, missing plans and similar.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicatePending is returned when a user already has a pending request.
	ErrDuplicatePending = errors.New("a pending subscription request already exists")
	// ErrDuplicateSalon is returned when an owner already has a salon.
	ErrDuplicateSalon = errors.New("salon already exists for owner")
	// ErrStorageFailure marks errors coming from the persistent store.
	ErrStorageFailure = errors.New("storage failure")
	// ErrConcurrentUpdate is returned when a salon row changed between read and write.
	ErrConcurrentUpdate = errors.New("salon was modified concurrently")

	ErrUnknownPlan       = fmt.Errorf("%w: unknown plan", ErrInvalidInput)
	ErrRequestNotPending = fmt.Errorf("%w: request is not pending", ErrInvalidInput)
)

// storageError keeps the driver error reachable while matching ErrStorageFailure.
type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrStorageFailure, e.err)
}

func (e *storageError) Is(target error) bool { return target == ErrStorageFailure }

func (e *storageError) Unwrap() error { return e.err }

// StorageError wraps err as a storage failure for operation op. A nil err stays nil.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storageError{op: op, err: err}
}
