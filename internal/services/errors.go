package services

import "errors"

var (
	ErrValidation          = errors.New("invalid request")
	ErrEmailTaken          = errors.New("email already in use")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrInvalidCode         = errors.New("invalid or expired code")
	ErrUserNotFound        = errors.New("user not found")
	ErrSessionInvalid      = errors.New("session expired or revoked")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductInUse        = errors.New("product is referenced by existing orders")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyOrder          = errors.New("order must contain items")
	ErrOrderNotFound       = errors.New("order not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotPending   = errors.New("payment already finalized")
	ErrPaymentUnsuccessful = errors.New("payment was not successful")
	ErrListNotFound        = errors.New("list not found")
	ErrListItemNotFound    = errors.New("item not found")
)
