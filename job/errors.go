package job

import "fmt"

// Stage failures are terminal for the job; the orchestrator records the
// cause, notifies observers, and runs nothing further. PersistenceError is
// the exception: losing a progress write is less harmful than losing the
// job, so it is logged and the pipeline continues.

// IntakeError means the upload was bad or missing.
type IntakeError struct{ Err error }

func (e *IntakeError) Error() string { return "IntakeError: " + e.Err.Error() }
func (e *IntakeError) Unwrap() error { return e.Err }

// TranscodeError means the codec or the storage sink failed.
type TranscodeError struct{ Err error }

func (e *TranscodeError) Error() string { return "TranscodeError: " + e.Err.Error() }
func (e *TranscodeError) Unwrap() error { return e.Err }

// DurabilityTimeoutError means the converted object never became visible
// within the bounded poll.
type DurabilityTimeoutError struct {
	Ref    string
	Checks int
}

func (e *DurabilityTimeoutError) Error() string {
	return fmt.Sprintf(
		"DurabilityTimeoutError: object %q not visible after %d checks",
		e.Ref, e.Checks,
	)
}

// RecognitionError means the recognition engine reported failure.
type RecognitionError struct{ Err error }

func (e *RecognitionError) Error() string { return "RecognitionError: " + e.Err.Error() }
func (e *RecognitionError) Unwrap() error { return e.Err }

// PersistenceError means a record store write failed.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return "PersistenceError: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
