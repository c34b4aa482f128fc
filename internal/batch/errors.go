// Package batch processes many billing workbooks with bounded concurrency,
// isolating failures per file and aggregating the outcome into a report.
package batch

import (
	"errors"
	"fmt"
)

// Fatal batch errors. Anything else is recorded on the failing file only.
var (
	ErrNoInputFiles = errors.New("no input files found")
	ErrOutputDir    = errors.New("output directory is not writable")
	ErrInvalidMode  = errors.New("invalid batch mode")
)

// ErrCancelled is recorded on files that never started because the batch was
// cancelled.
var ErrCancelled = errors.New("batch cancelled before the file started")

// Service lookup errors.
var (
	ErrJobNotFound = errors.New("batch not found")
	ErrJobRunning  = errors.New("batch is still running")
)

// FileError wraps an unrecovered failure of one file.
type FileError struct {
	File  string
	Panic bool
	Err   error
}

func (e *FileError) Error() string {
	if e.Panic {
		return fmt.Sprintf("file %s: panic: %v", e.File, e.Err)
	}
	return fmt.Sprintf("file %s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
