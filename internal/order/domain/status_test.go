package domain

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to accepted", StatusPending, StatusAccepted, true},
		{"accepted to preparing", StatusAccepted, StatusPreparing, true},
		{"preparing to ready", StatusPreparing, StatusReady, true},
		{"ready to delivered", StatusReady, StatusDelivered, true},
		{"delivered to completed", StatusDelivered, StatusCompleted, true},
		{"skip ahead pending to preparing", StatusPending, StatusPreparing, true},
		{"skip ahead accepted to completed", StatusAccepted, StatusCompleted, true},
		{"no going back ready to preparing", StatusReady, StatusPreparing, false},
		{"no going back delivered to pending", StatusDelivered, StatusPending, false},
		{"same status", StatusPreparing, StatusPreparing, false},
		{"cancel from pending", StatusPending, StatusCancelled, true},
		{"cancel from delivered", StatusDelivered, StatusCancelled, true},
		{"reject from pending", StatusPending, StatusRejected, true},
		{"reject from ready", StatusReady, StatusRejected, true},
		{"completed is immutable", StatusCompleted, StatusCancelled, false},
		{"completed cannot reopen", StatusCompleted, StatusPending, false},
		{"cancelled is immutable", StatusCancelled, StatusPending, false},
		{"cancelled cannot complete", StatusCancelled, StatusCompleted, false},
		{"rejected can only close to cancelled", StatusRejected, StatusCancelled, true},
		{"rejected cannot resume", StatusRejected, StatusAccepted, false},
		{"rejected cannot complete", StatusRejected, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	terminal := []OrderStatus{StatusCompleted, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	open := []OrderStatus{StatusPending, StatusAccepted, StatusPreparing, StatusReady, StatusDelivered, StatusRejected}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("preparing"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	_, err := ParseOrderStatus("shipped")
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
	var invalid *InvalidStatusError
	if !errors.As(err, &invalid) {
		t.Errorf("expected InvalidStatusError, got %T", err)
	}
}

func TestCanTransitionPayment(t *testing.T) {
	tests := []struct {
		from PaymentStatus
		to   PaymentStatus
		want bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentPaid, PaymentPartiallyRefunded, true},
		{PaymentPending, PaymentRefunded, false},
		{PaymentFailed, PaymentPaid, false},
		{PaymentRefunded, PaymentPaid, false},
		{PaymentPaid, PaymentPending, false},
	}

	for _, tt := range tests {
		if got := CanTransitionPayment(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionPayment(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
