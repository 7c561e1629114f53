package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
)

// Method selects how the Drive service is authenticated. The set is closed:
// the method is resolved once at session start, not per upload.
type Method string

const (
	MethodOAuth          Method = "oauth"
	MethodServiceAccount Method = "service_account"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodOAuth, MethodServiceAccount:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown auth method %q: use %q or %q", s, MethodOAuth, MethodServiceAccount)
	}
}

// Error reports that credentials were absent or invalid for the given
// method. It is distinct from the quota condition surfaced at upload time.
type Error struct {
	Method Method
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Method, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewDriveService builds an authenticated Drive client for the method.
// Service accounts carry zero personal storage quota: uploads to a personal
// Drive will fail with a quota error unless ownership is transferred.
func NewDriveService(ctx context.Context, method Method) (*drive.Service, error) {
	switch method {
	case MethodServiceAccount:
		svc, err := newServiceAccountService(ctx)
		if err != nil {
			return nil, &Error{Method: method, Err: err}
		}
		return svc, nil

	case MethodOAuth:
		svc, err := newOAuthService(ctx)
		if err != nil {
			return nil, &Error{Method: method, Err: err}
		}
		return svc, nil

	default:
		return nil, &Error{Method: method, Err: fmt.Errorf("unknown auth method")}
	}
}
