package domain

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPayment       = errors.New("invalid payment request")
	ErrUpstreamPayment      = errors.New("upstream payment provider error")
	ErrUpstreamTimeout      = errors.New("upstream payment provider timed out")
	ErrRecordNotFound       = errors.New("payment record not found")
	ErrPaymentRejected      = errors.New("payment rejected by gateway")
	ErrCartLineReserved     = errors.New("cart line already reserved by a pending payment")
	ErrUnauthorized         = errors.New("unauthorized access")
	ErrForbidden            = errors.New("forbidden access")
	ErrIllegalTransition    = errors.New("illegal transition of payment status")
	ErrDuplicateExternalRef = errors.New("payment with this external reference already exists")
)
