package limits

import (
	"errors"
	"testing"
)

func TestBudgetCharge(t *testing.T) {
	b := NewBudget(10)
	if err := b.Charge(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Charge(6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := b.Charge(1)
	var exceeded ExceededError
	if !errors.As(err, &exceeded) || exceeded.Limit != 10 {
		t.Fatalf("expected ExceededError{10}, got %v", err)
	}
	if err.Error() != "max instruction count exceeded (10)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if b.Used() != 10 {
		t.Fatalf("expected used 10, got %d", b.Used())
	}
}

func TestBudgetReset(t *testing.T) {
	b := NewBudget(2)
	_ = b.Charge(2)
	b.Reset()
	if err := b.Charge(2); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(0)
	if err := b.Charge(1_000_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var nilBudget *Budget
	if err := nilBudget.Charge(1); err != nil {
		t.Fatalf("unexpected error on nil budget: %v", err)
	}
}
