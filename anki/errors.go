package anki

import (
	"errors"
	"fmt"
)

// Remediation is shown to the user whenever AnkiConnect cannot be used.
const Remediation = "Make sure that:\n1. Anki is running\n2. the AnkiConnect add-on is installed\n3. connection permission was granted"

// ErrNotInitialized is returned by every operation attempted before the
// client reached the Ready state. No request is sent in that case.
var ErrNotInitialized = errors.New("anki client is not initialized, connect to AnkiConnect first")

// ConnectivityError means AnkiConnect could not be reached or answered with
// a non-success status.
type ConnectivityError struct {
	Action string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach AnkiConnect (%s): %v", e.Action, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// APIError is an application-level error reported inside an otherwise
// successful AnkiConnect response.
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AnkiConnect %s: %s", e.Action, e.Message)
}

// CORSError reports a failed origin registration. It is not fatal: the
// client is Ready afterwards.
type CORSError struct {
	Err error
}

func (e *CORSError) Error() string {
	return fmt.Sprintf("failed to update AnkiConnect CORS origins: %v", e.Err)
}

func (e *CORSError) Unwrap() error { return e.Err }

// NoteCreationError wraps any failure of addNote.
type NoteCreationError struct {
	Err error
}

func (e *NoteCreationError) Error() string {
	return fmt.Sprintf("failed to add note: %v", e.Err)
}

func (e *NoteCreationError) Unwrap() error { return e.Err }
