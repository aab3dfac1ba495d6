package trigger

import (
	"errors"
	"testing"
	"time"
)

func TestParseInvalidCron(t *testing.T) {
	_, err := Parse("not a cron expr")
	if err == nil {
		t.Fatal("expected an InvalidCron error")
	}
	var ic *InvalidCron
	if !errors.As(err, &ic) {
		t.Fatalf("expected *InvalidCron, got %T", err)
	}
}

func TestNextIsDeterministic(t *testing.T) {
	tr, err := Parse("0/2 * * * * *")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	n1, ok1 := tr.Next(ref)
	n2, ok2 := tr.Next(ref)
	if !ok1 || !ok2 {
		t.Fatalf("expected ok=true for both calls")
	}
	if !n1.Equal(n2) {
		t.Fatalf("Next is not deterministic: %v != %v", n1, n2)
	}
	if !n1.After(ref) {
		t.Fatalf("Next must be strictly after the reference instant")
	}
}

func TestEveryDescriptor(t *testing.T) {
	tr, err := Parse("@every 1h")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, ok := tr.Next(ref)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got := next.Sub(ref); got != time.Hour {
		t.Fatalf("next-ref = %v, want 1h", got)
	}
}

func TestSpecReturnsOriginalExpr(t *testing.T) {
	tr, err := Parse("@daily")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tr.Spec() != "@daily" {
		t.Fatalf("Spec() = %q, want %q", tr.Spec(), "@daily")
	}
}
