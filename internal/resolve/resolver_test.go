package resolve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ops-tools/goldbaker/internal/models"
)

type countingStrategy struct {
	calls      int
	descriptor *models.ImageDescriptor
	err        error
}

func (s *countingStrategy) Resolve(_ context.Context, _ string) (*models.ImageDescriptor, error) {
	s.calls++
	return s.descriptor, s.err
}

func testResolver(strategies map[string]Strategy) *Resolver {
	return &Resolver{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		strategies: strategies,
		cache:      map[string]*models.ImageDescriptor{},
	}
}

func TestResolveDispatchesByScheme(t *testing.T) {
	t.Parallel()

	ami := &countingStrategy{descriptor: &models.ImageDescriptor{ID: "ami-1"}}
	name := &countingStrategy{descriptor: &models.ImageDescriptor{ID: "ami-2"}}
	resolver := testResolver(map[string]Strategy{"ami": ami, "name": name})

	descriptor, err := resolver.Resolve(context.Background(), "name:base-*")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if descriptor.ID != "ami-2" {
		t.Fatalf("Resolve() id = %q, want ami-2", descriptor.ID)
	}
	if ami.calls != 0 || name.calls != 1 {
		t.Fatalf("strategy calls = %d/%d, want 0/1", ami.calls, name.calls)
	}
}

func TestResolveMalformedSpec(t *testing.T) {
	t.Parallel()

	resolver := testResolver(map[string]Strategy{})
	_, err := resolver.Resolve(context.Background(), "noscheme")
	if !errors.Is(err, ErrMalformedSpec) {
		t.Fatalf("Resolve() error = %v, want ErrMalformedSpec", err)
	}
}

func TestResolveUnsupportedScheme(t *testing.T) {
	t.Parallel()

	resolver := testResolver(map[string]Strategy{"ami": &countingStrategy{}})
	_, err := resolver.Resolve(context.Background(), "unknown:x")

	var unsupported *UnsupportedSchemeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Resolve() error = %v, want UnsupportedSchemeError", err)
	}
	if unsupported.Scheme != "unknown" {
		t.Fatalf("Scheme = %q, want unknown", unsupported.Scheme)
	}
}

func TestResolveMemoizesPerSpec(t *testing.T) {
	t.Parallel()

	strategy := &countingStrategy{descriptor: &models.ImageDescriptor{ID: "ami-1", CreationDate: time.Now()}}
	resolver := testResolver(map[string]Strategy{"ami": strategy})

	for i := 0; i < 3; i++ {
		if _, err := resolver.Resolve(context.Background(), "ami:ami-1"); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if strategy.calls != 1 {
		t.Fatalf("strategy calls = %d, want 1", strategy.calls)
	}

	// A distinct payload under the same scheme is its own cache entry.
	if _, err := resolver.Resolve(context.Background(), "ami:ami-2"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if strategy.calls != 2 {
		t.Fatalf("strategy calls = %d, want 2", strategy.calls)
	}
}

func TestResolveCachesNotFound(t *testing.T) {
	t.Parallel()

	strategy := &countingStrategy{}
	resolver := testResolver(map[string]Strategy{"ami": strategy})

	for i := 0; i < 2; i++ {
		descriptor, err := resolver.Resolve(context.Background(), "ami:ami-missing")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if descriptor != nil {
			t.Fatalf("Resolve() = %v, want nil", descriptor)
		}
	}
	if strategy.calls != 1 {
		t.Fatalf("strategy calls = %d, want 1", strategy.calls)
	}
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	strategy := &countingStrategy{err: errors.New("throttled")}
	resolver := testResolver(map[string]Strategy{"ami": strategy})

	for i := 0; i < 2; i++ {
		if _, err := resolver.Resolve(context.Background(), "ami:ami-1"); err == nil {
			t.Fatal("Resolve() error = nil, want non-nil")
		}
	}
	if strategy.calls != 2 {
		t.Fatalf("strategy calls = %d, want 2", strategy.calls)
	}
}
