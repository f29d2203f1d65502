package index

import (
	"errors"
	"fmt"
)

var (
	// ErrDataIntegrity marks an inconsistent set of index artifacts. It is fatal at startup.
	ErrDataIntegrity = errors.New("index data integrity violation")

	// ErrDimensionMismatch marks a query vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNonFiniteQuery marks a query vector holding NaN or Inf.
	ErrNonFiniteQuery = errors.New("query vector contains a non-finite value")
)

// DataIntegrityError describes why a load was rejected.
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDataIntegrity, e.Reason)
}

func (e *DataIntegrityError) Unwrap() error {
	return ErrDataIntegrity
}

func integrityErrorf(format string, args ...interface{}) error {
	return &DataIntegrityError{Reason: fmt.Sprintf(format, args...)}
}

// DimensionMismatchError is returned for queries of the wrong size.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrDimensionMismatch, e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}
