package errors

import (
	"errors"
	"fmt"

	"github.com/berkguzel/pstar/pkg/policy"
)

// Standard application errors
var (
	ErrFileNotFound     = errors.New("file not found")
	ErrIsDirectory      = errors.New("path is a directory")
	ErrFileUnreadable   = errors.New("file is not readable")
	ErrNoRegion         = errors.New("no AWS region specified")
	ErrNoRoleAnnotation = errors.New("no IAM role annotation found on service account")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeMalformed  ErrorType = "malformed"
	ErrorTypeAWS        ErrorType = "aws"
	ErrorTypeKubernetes ErrorType = "kubernetes"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError of the same Type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInputError creates an error for a policy document that could not be read
func NewInputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInput,
		Message: message,
		Err:     err,
	}
}

// NewMalformedError wraps a policy that was read but is not a role policy
func NewMalformedError(err error) *AppError {
	message := err.Error()
	var malformed *policy.MalformedInputError
	if errors.As(err, &malformed) {
		message = malformed.Reason
	}
	return &AppError{
		Type:    ErrorTypeMalformed,
		Message: message,
		Err:     err,
	}
}

func NewAWSError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeAWS,
		Message: message,
		Err:     err,
	}
}

func NewKubernetesError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeKubernetes,
		Message: message,
		Err:     err,
	}
}

// UserFriendlyError returns the message printed to the console for err.
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input Error: %s", appErr.Message)
		case ErrorTypeMalformed:
			return fmt.Sprintf("Malformed data: %s", appErr.Message)
		case ErrorTypeAWS:
			return withCause("AWS error: "+appErr.Message, appErr.Err)
		case ErrorTypeKubernetes:
			return withCause("Kubernetes error: "+appErr.Message, appErr.Err)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	var malformed *policy.MalformedInputError
	if errors.As(err, &malformed) {
		return fmt.Sprintf("Malformed data: %s", malformed.Reason)
	}

	return fmt.Sprintf("Error: %v", err)
}

func withCause(msg string, err error) string {
	if err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, err)
}
