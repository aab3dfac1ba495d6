package handler

import (
	"context"
	"errors"
	"testing"
)

func TestResolveSingleRegistrationIgnoresBeanName(t *testing.T) {
	r := New()
	called := false
	r.RegisterType("billing.ReportService", func(ctx context.Context) error {
		called = true
		return nil
	})

	fn, err := r.Resolve("billing.ReportService", "anything")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := fn(context.Background()); err != nil {
		t.Fatalf("fn: %v", err)
	}
	if !called {
		t.Fatal("expected the registered callable to run")
	}
}

func TestResolveNarrowsByNameWhenAmbiguous(t *testing.T) {
	r := New()
	r.RegisterNamed("billing.ReportService", "primary", func(ctx context.Context) error { return nil })
	r.RegisterNamed("billing.ReportService", "secondary", func(ctx context.Context) error { return errors.New("secondary ran") })

	fn, err := r.Resolve("billing.ReportService", "secondary")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := fn(context.Background()); err == nil || err.Error() != "secondary ran" {
		t.Fatalf("resolved wrong bean: err=%v", err)
	}
}

func TestResolveUnknownClassNotFound(t *testing.T) {
	r := New()
	_, err := r.Resolve("missing.Class", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveAmbiguousWithoutMatchingNameNotFound(t *testing.T) {
	r := New()
	r.RegisterNamed("billing.ReportService", "primary", func(ctx context.Context) error { return nil })
	r.RegisterNamed("billing.ReportService", "secondary", func(ctx context.Context) error { return nil })

	_, err := r.Resolve("billing.ReportService", "tertiary")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterAfterSealPanics(t *testing.T) {
	r := New()
	r.Seal()
	defer func() {
		if recover() == nil {
			t.Fatal("expected RegisterType to panic after Seal")
		}
	}()
	r.RegisterType("x", func(ctx context.Context) error { return nil })
}
