// Package errors provides standardized error types for the KeyItBible codebase.
//
// All store-level failures fall into a four-way taxonomy (create, read,
// update, delete) matching the operations of the persistence layer. The
// editing core never raises these itself; it only annotates and propagates
// them, so by the time an error reaches the top level its message carries
// the full chain of operation names that it passed through.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrStoreCreate indicates a failed insert into the persistence layer.
	ErrStoreCreate = errors.New("store create failed")
	// ErrStoreRead indicates a failed read from the persistence layer.
	ErrStoreRead = errors.New("store read failed")
	// ErrStoreUpdate indicates a failed update in the persistence layer.
	ErrStoreUpdate = errors.New("store update failed")
	// ErrStoreDelete indicates a failed delete in the persistence layer.
	ErrStoreDelete = errors.New("store delete failed")
	// ErrItemNotFound indicates a publication item identifier that is not
	// present in the loaded chapter.
	ErrItemNotFound = errors.New("verse item not found")
	// ErrInvalidInput indicates invalid input or validation failure.
	ErrInvalidInput = errors.New("invalid input")
)

// Kind classifies a store error by the persistence operation that failed.
type Kind int

const (
	// KindCreate is a failed insert.
	KindCreate Kind = iota
	// KindRead is a failed select.
	KindRead
	// KindUpdate is a failed update.
	KindUpdate
	// KindDelete is a failed delete.
	KindDelete
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindRead:
		return "read"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// sentinel returns the sentinel error corresponding to the kind.
func (k Kind) sentinel() error {
	switch k {
	case KindCreate:
		return ErrStoreCreate
	case KindRead:
		return ErrStoreRead
	case KindUpdate:
		return ErrStoreUpdate
	case KindDelete:
		return ErrStoreDelete
	default:
		return ErrStoreRead
	}
}

// StoreError represents a persistence-layer failure with operation context.
type StoreError struct {
	Kind Kind   // Which CRUD operation failed
	Op   string // Operation name (e.g., "verseItemsInsertRec")
	Err  error  // Underlying error, if any
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: store %s failed: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: store %s failed", e.Op, e.Kind)
}

func (e *StoreError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind.sentinel()
}

// Is reports whether target matches this error's kind sentinel.
func (e *StoreError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Create returns a StoreError for a failed insert in op.
func Create(op string, err error) error {
	return &StoreError{Kind: KindCreate, Op: op, Err: err}
}

// Read returns a StoreError for a failed read in op.
func Read(op string, err error) error {
	return &StoreError{Kind: KindRead, Op: op, Err: err}
}

// Update returns a StoreError for a failed update in op.
func Update(op string, err error) error {
	return &StoreError{Kind: KindUpdate, Op: op, Err: err}
}

// Delete returns a StoreError for a failed delete in op.
func Delete(op string, err error) error {
	return &StoreError{Kind: KindDelete, Op: op, Err: err}
}

// NotFoundError records an identifier missing from loaded data.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "verse item", "chapter")
	ID       int    // Identifier of the resource
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrItemNotFound
}

// Annotate wraps err with the name of the function that is propagating it.
// It is used at every level of the call chain so that the final message
// reads like a stack of operation names, matching the propagation policy
// of the editing core.
func Annotate(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
