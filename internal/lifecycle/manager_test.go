package lifecycle

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestManager_ClosesInReverseOrder(t *testing.T) {
	m := NewManager(zerolog.Nop())
	var order []string
	for _, name := range []string{"mongo", "reconciler", "idempotency"} {
		name := name
		m.RegisterFunc(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := strings.Join(order, ","); got != "idempotency,reconciler,mongo" {
		t.Errorf("close order = %s", got)
	}
	if m.Len() != 0 {
		t.Errorf("resources left after close: %d", m.Len())
	}
}

func TestManager_ContinuesPastFailures(t *testing.T) {
	m := NewManager(zerolog.Nop())
	errFirst := errors.New("first")
	closed := false

	m.RegisterFunc("a", func() error { closed = true; return nil })
	m.RegisterFunc("b", func() error { return errFirst })

	err := m.Close()
	if !errors.Is(err, errFirst) {
		t.Fatalf("err = %v, want it to wrap %v", err, errFirst)
	}
	if !strings.Contains(err.Error(), "b:") {
		t.Errorf("error should name the resource: %v", err)
	}
	if !closed {
		t.Error("resource registered before the failure was not closed")
	}
}

func TestManager_IgnoresNil(t *testing.T) {
	m := NewManager(zerolog.Nop())
	var c io.Closer
	m.Register("nothing", c)
	if m.Len() != 0 {
		t.Errorf("nil closer was registered")
	}
}

func TestManager_ShutdownHonoursContext(t *testing.T) {
	m := NewManager(zerolog.Nop())
	called := false
	m.RegisterFunc("late", func() error { called = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Shutdown(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Error("closer ran after the context ended")
	}
}
