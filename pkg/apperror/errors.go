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

// ---- Donations (DON) ----

func ErrInvalidAmount() *AppError {
	return New("DON_001", "Amount must be a positive integer", http.StatusBadRequest)
}

func ErrInvalidRecipient() *AppError {
	return New("DON_002", "Invalid recipient identifier", http.StatusBadRequest)
}

func ErrDonationNotFound() *AppError {
	return New("DON_003", "Donation not found", http.StatusNotFound)
}

// ---- Wallets & Withdrawals (WAL) ----

func ErrWalletNotFound() *AppError {
	return New("WAL_001", "Wallet not found", http.StatusNotFound)
}

func ErrInsufficientFunds() *AppError {
	return New("WAL_002", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrBelowMinimumWithdrawal(minimum int64) *AppError {
	return New("WAL_003", fmt.Sprintf("Withdrawal amount must exceed %d", minimum), http.StatusBadRequest)
}

func ErrWithdrawalNotFound() *AppError {
	return New("WAL_004", "Withdrawal request not found", http.StatusNotFound)
}

func ErrWithdrawalAlreadyProcessed() *AppError {
	return New("WAL_005", "Withdrawal request already processed", http.StatusConflict)
}

// ---- Security (SEC) ----

// ErrInvalidSignature deliberately carries no detail about what failed.
func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Forbidden", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Payment Provider (PROV) ----

func ErrPaymentProvider(err error) *AppError {
	return Wrap("PROV_001", "Payment provider request failed", http.StatusBadGateway, err)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a DON_001-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("DON_001", message, http.StatusBadRequest)
}
