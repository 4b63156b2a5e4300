package betfair

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Error codes for Betfair API
const (
	ErrorInvalidSessionInformation = "INVALID_SESSION_INFORMATION"
	ErrorNoSession                 = "NO_SESSION"
	ErrorNoAppKey                  = "NO_APP_KEY"
	ErrorInvalidAppKey             = "INVALID_APP_KEY"
	ErrorTooMuchData               = "TOO_MUCH_DATA"
	ErrorTooManyRequests           = "TOO_MANY_REQUESTS"
)

// BetfairAPIError represents an error from Betfair API
type BetfairAPIError struct {
	Message   string
	ErrorCode string
	Cause     error
}

func (e *BetfairAPIError) Error() string {
	return fmt.Sprintf("Betfair API error: %s (code: %s)", e.Message, e.ErrorCode)
}

func (e *BetfairAPIError) Unwrap() error {
	return e.Cause
}

// AuthenticationError represents an authentication failure
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Authentication error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("Authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// NewBetfairAPIError creates a new Betfair API error
func NewBetfairAPIError(message, code string, cause error) *BetfairAPIError {
	return &BetfairAPIError{
		Message:   message,
		ErrorCode: code,
		Cause:     cause,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string, cause error) *AuthenticationError {
	return &AuthenticationError{
		Message: message,
		Cause:   cause,
	}
}

// MapBetfairError maps Betfair API error codes to specific error types
func MapBetfairError(errorCode string, message string, logger *logrus.Logger) error {
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"error_code": errorCode,
		}).Debug(message)
	}

	switch errorCode {
	case ErrorInvalidSessionInformation, ErrorNoSession:
		return NewAuthenticationError("invalid session information", nil)
	case ErrorNoAppKey, ErrorInvalidAppKey:
		return NewAuthenticationError("application key rejected", nil)
	default:
		return NewBetfairAPIError(message, errorCode, nil)
	}
}
