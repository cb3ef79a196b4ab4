package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogLoad marks failures that make the whole source unusable.
	ErrCatalogLoad = errors.New("catalog load failed")

	// ErrParse marks a malformed row. It is recovered locally by skipping the
	// row and never escapes Load.
	ErrParse = errors.New("malformed catalog row")
)

// LoadError describes why a catalog source could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCatalogLoad, e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrCatalogLoad, e.Err}
}
