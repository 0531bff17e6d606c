package twitter

import "fmt"

// AuthError is returned when the login retry loop is exhausted. It is
// fatal to Init but not to the process; callers log it and keep running
// unauthenticated.
type AuthError struct {
	Platform string
	Attempts int
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: authentication failed after %d attempts: %v", e.Platform, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed after %d attempts", e.Platform, e.Attempts)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrNotAuthenticated is returned by session capabilities invoked before
// a successful Init.
type ErrNotAuthenticated struct {
	Op string
}

func (e *ErrNotAuthenticated) Error() string {
	return fmt.Sprintf("%s: session not authenticated", e.Op)
}
