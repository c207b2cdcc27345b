package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Remote failures, one per gateway outcome
	ErrValidation    = fmt.Errorf("request rejected as invalid")
	ErrAuthorization = fmt.Errorf("authorization failed")
	ErrNotFound      = fmt.Errorf("resource not found")
	ErrConflict      = fmt.Errorf("resource conflict")
	ErrTransport     = fmt.Errorf("transport failure")
	ErrRemote        = fmt.Errorf("remote service error")

	// Session and authentication errors
	ErrUnauthenticated    = fmt.Errorf("not authenticated")
	ErrNoActiveSession    = fmt.Errorf("no active session")
	ErrStaleSession       = fmt.Errorf("session changed while request was in flight")
	ErrSessionEnded       = fmt.Errorf("session ended, please log in again")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")

	// Favorite errors
	ErrToggleInProgress = fmt.Errorf("favorite change already in progress")
	ErrReconcileFailed  = fmt.Errorf("favorite change failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
