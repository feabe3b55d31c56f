package domain

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidRequestError reports a malformed or semantically invalid request.
// Client bug; never worth retrying unchanged.
type InvalidRequestError struct {
	Reason string
}

func (e InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// NotFoundError reports ids that do not resolve to any active item.
type NotFoundError struct {
	Resource ResourceType
	IDs      []string
}

func (e NotFoundError) Error() string {
	if len(e.IDs) == 1 {
		return fmt.Sprintf("%s %s not found", e.Resource, e.IDs[0])
	}
	return fmt.Sprintf("%s ids not found: %s", e.Resource, strings.Join(e.IDs, ", "))
}

// ForbiddenError reports a reference to an item outside the caller's scope.
type ForbiddenError struct {
	Resource ResourceType
	ID       string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("%s %s belongs to another owner", e.Resource, e.ID)
}

// ConflictError reports a revision mismatch: the scope was modified after the
// client read the ordering it is trying to replace.
type ConflictError struct {
	Scope    Scope
	Expected uint64
	Current  uint64
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s/%s modified concurrently: revision %d, submitted against %d",
		e.Scope.OwnerID, e.Scope.Resource, e.Current, e.Expected)
}

// StorageError wraps a transaction or connectivity failure from the backing
// store. Transient; the whole reorder is safe to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error { return e.Err }

// IsInvalidRequest reports whether err is an InvalidRequestError.
func IsInvalidRequest(err error) bool {
	var ire InvalidRequestError
	return errors.As(err, &ire)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe NotFoundError
	return errors.As(err, &nfe)
}

// IsForbidden reports whether err is a ForbiddenError.
func IsForbidden(err error) bool {
	var fe ForbiddenError
	return errors.As(err, &fe)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se StorageError
	return errors.As(err, &se)
}
