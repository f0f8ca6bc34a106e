package zag

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrEmptyArchive is returned when an export is requested with no entries.
	ErrEmptyArchive = errors.New("zag: no files to archive")

	// ErrGenerationFailed is matched by every error that ends an export after
	// encoding started.
	ErrGenerationFailed = errors.New("zag: archive generation failed")

	// ErrSaveFailed is returned when the encoded archive could not be saved.
	ErrSaveFailed = errors.New("zag: save failed")

	// ErrExportInProgress is returned by Session.Download while an export is encoding.
	ErrExportInProgress = errors.New("zag: export in progress")

	// ErrInvalidLevel is returned for compression levels outside 0..9.
	ErrInvalidLevel = errors.New("zag: invalid compression level")

	// ErrSizeMismatch is returned when a file's content does not match its declared size.
	ErrSizeMismatch = errors.New("zag: file size changed during ingestion")
)

// GenerationError reports a failed export. Its message is the underlying
// failure text, unchanged, so it can be shown to the user as is.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return ErrGenerationFailed.Error()
	}
	return e.Err.Error()
}

// Unwrap returns the cause and ErrGenerationFailed.
func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Err}
}

func generationFailed(err error) error {
	return &GenerationError{Err: err}
}

func saveFailed(filename string, err error) error {
	return &GenerationError{Err: fmt.Errorf("%w: %s: %w", ErrSaveFailed, filename, err)}
}
