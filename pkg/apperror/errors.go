package apperror

import (
	"errors"
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

// Is matches two AppErrors by code so errors.Is works against the constructors.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
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

// CodeOf returns the AppError code carried by err, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Wallet & Payment (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrDuplicateRequest() *AppError {
	return New("PAY_003", "Duplicate request", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrRequestNotFound() *AppError {
	return ErrNotFound("payment request")
}

func ErrInvalidTransition(from, to string) *AppError {
	return New("PAY_008", fmt.Sprintf("cannot move from %s to %s", from, to), http.StatusConflict)
}

// ---- OTP (OTP) ----

func ErrRequestAlreadyCompleted() *AppError {
	return New("OTP_001", "Payment request already completed", http.StatusConflict)
}

func ErrRequestLocked() *AppError {
	return New("OTP_002", "Payment request is locked after too many failed attempts", http.StatusLocked)
}

func ErrRequestExpired() *AppError {
	return New("OTP_003", "Payment request has expired", http.StatusGone)
}

func ErrInvalidOTP() *AppError {
	return New("OTP_004", "Invalid OTP code", http.StatusBadRequest)
}

// ---- Allowances & Categories (ALW / CAT) ----

func ErrAllowanceExceeded() *AppError {
	return New("ALW_001", "Category spending limit exceeded", http.StatusUnprocessableEntity)
}

func ErrCategoryNotAssigned() *AppError {
	return New("CAT_001", "Merchant is not authorized for this category", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_005", "Role not permitted for this operation", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Request (REQ) ----

func ErrPayloadTooLarge() *AppError {
	return New("REQ_001", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageUnavailable reports a storage failure the caller cannot act on.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_001", "Storage unavailable", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}
