package entities

import "fmt"

// ValidationError reports a missing required field or a malformed value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// CycleError reports a parent edge that would make a person its own ancestor,
// or that conflicts with a current marriage.
type CycleError struct {
	PersonID  string
	RelatedID string
	Reason    string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("invalid parent %s for %s: %s", e.RelatedID, e.PersonID, e.Reason)
}

// NotFoundError reports an id absent from the current collection.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// PersistenceError wraps a failure of the persistence collaborator.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
