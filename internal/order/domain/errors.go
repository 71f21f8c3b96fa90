package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when an order id does not resolve
	ErrOrderNotFound = errors.New("order not found")
	// ErrCustomerIdentity is returned when not exactly one of user id and
	// guest token is set
	ErrCustomerIdentity = errors.New("exactly one of user id and guest token must be set")
	// ErrTransitionConflict is returned when a concurrent transition won the
	// conditional write
	ErrTransitionConflict = errors.New("order was modified concurrently")
	// ErrIllegalState is returned when details are updated on a terminal order
	ErrIllegalState = errors.New("order is in a terminal status")
	// ErrTenantMismatch is returned when the actor's restaurant scope does
	// not match the order's
	ErrTenantMismatch = errors.New("restaurant scope mismatch")
)

// InvalidStatusError reports a value outside the closed status enum
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Value)
}

// IllegalTransitionError reports a transition the state machine forbids
type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s", e.From, e.To)
}

// IllegalPaymentTransitionError reports a forbidden payment status transition
type IllegalPaymentTransitionError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *IllegalPaymentTransitionError) Error() string {
	return fmt.Sprintf("illegal payment transition from %s to %s", e.From, e.To)
}
