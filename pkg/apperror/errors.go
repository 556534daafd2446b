package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Cards (CARD) ----

func ErrCardNotFound() *AppError {
	return New("CARD_001", "Card not found.", http.StatusNotFound)
}

func ErrCardNotActive() *AppError {
	return New("CARD_002", "Card not active", http.StatusConflict)
}

// ErrCardNotActiveRequest is the 400 flavour returned when an owner asks to block a card
// that is no longer active.
func ErrCardNotActiveRequest() *AppError {
	return New("CARD_002", "Card not active", http.StatusBadRequest)
}

func ErrSameCard() *AppError {
	return New("CARD_003", "Debit card and credit card cannot be the same.", http.StatusConflict)
}

func ErrInsufficientFunds() *AppError {
	return New("CARD_004", "Not enough funds on the debit card.", http.StatusConflict)
}

func ErrInvalidCardNumber() *AppError {
	return New("CARD_005", "Invalid card number.", http.StatusInternalServerError)
}

func ErrAdminOwnershipForbidden() *AppError {
	return New("CARD_006", "The admin cannot be the card owner.", http.StatusBadRequest)
}

// ---- Users (USER) ----

func ErrUserNotFound() *AppError {
	return New("USER_001", "User not found.", http.StatusNotFound)
}

func ErrUsernameTaken() *AppError {
	return New("USER_002", "User with this username is already registered.", http.StatusBadRequest)
}

func ErrPasswordsMismatch() *AppError {
	return New("USER_003", "Passwords don't match.", http.StatusBadRequest)
}

func ErrAdminSelfDelete() *AppError {
	return New("USER_004", "Admin cannot delete himself.", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid login or password.", http.StatusUnauthorized)
}

func ErrTokenExpired() *AppError {
	return New("AUTH_002", "Token expired.", http.StatusUnauthorized)
}

func ErrTokenInvalid() *AppError {
	return New("AUTH_003", "Invalid token.", http.StatusUnauthorized)
}

func ErrInvalidRefreshToken() *AppError {
	return New("AUTH_004", "Invalid refresh token.", http.StatusUnauthorized)
}

func ErrMissingToken() *AppError {
	return New("AUTH_005", "Authentication required.", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_006", "Access denied.", http.StatusForbidden)
}

// ---- Validation (VAL) ----

// Validation returns a VAL_001 error carrying the binding message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Amount must be between 1.00 and 1000000.00 with at most 2 decimal places.", http.StatusBadRequest)
}

func ErrBodyTooLarge() *AppError {
	return New("VAL_003", "Request body too large.", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}
