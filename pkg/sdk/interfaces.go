package sdk

import (
	"fmt"
	"net/http"
)

// AccountStore is the client-facing contract for the account service.
// Both the remote TCP client and the embedded service implement it.
type AccountStore interface {
	// Register creates an account and returns the server's success message.
	Register(email, password string) (string, error)
	// Authenticate checks credentials and returns the server's success message.
	Authenticate(email, password string) (string, error)
	Close() error
}

// Error is a rejected request. Code follows HTTP status semantics
// (400 missing fields, 401 bad credentials, 500 storage failure).
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// IsUnauthorized reports whether err is a credential mismatch.
func IsUnauthorized(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == http.StatusUnauthorized
}
