package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedUnit indicates a map was declared in a unit the pipeline
	// does not accept for its role.
	ErrUnsupportedUnit = errors.New("unsupported map unit")
	// ErrUnsupportedFormat indicates an output file type other than FITS.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrNotReady indicates the pipeline configuration is incomplete.
	ErrNotReady = errors.New("pipeline not configured")
)

// UnsupportedUnitError reports the role, the declared unit and the single
// unit accepted for that role. No conversion is attempted.
type UnsupportedUnitError struct {
	Role MapRole
	Unit string
	Want string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("unsupported %s map unit: %q (want %q)", e.Role, e.Unit, e.Want)
}

func (e *UnsupportedUnitError) Unwrap() error { return ErrUnsupportedUnit }

// UnsupportedFormatError reports a configured output file type that cannot
// be written.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported output file type: %q (only %q)", e.Format, FileTypeFITS)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }
