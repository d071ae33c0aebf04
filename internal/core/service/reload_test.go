package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

// rotatingAdapter rotates its token on every reload, like Pronote and
// ESUP-Multi do.
type rotatingAdapter struct {
	mu          sync.Mutex
	reloadCount int
	reloadErr   error
	slow        time.Duration
}

func (a *rotatingAdapter) Service() domain.Service { return domain.ServiceMulti }

func (a *rotatingAdapter) Reload(_ context.Context, account *domain.Account) (*ports.SessionPayload, error) {
	if a.slow > 0 {
		time.Sleep(a.slow)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reloadErr != nil {
		return nil, a.reloadErr
	}
	a.reloadCount++
	auth := account.Authentication.(domain.MultiAuth)
	return &ports.SessionPayload{
		Handle: a.reloadCount,
		Authentication: domain.MultiAuth{
			InstanceURL:  auth.InstanceURL,
			RefreshToken: auth.RefreshToken + "+",
		},
	}, nil
}

// sessionlessAdapter has no reload at all.
type sessionlessAdapter struct{}

func (sessionlessAdapter) Service() domain.Service { return domain.ServiceLocal }

func multiAccount() *domain.Account {
	return &domain.Account{
		LocalID:        "multi-1",
		Service:        domain.ServiceMulti,
		Authentication: domain.MultiAuth{InstanceURL: "https://multi.example.edu", RefreshToken: "rt"},
	}
}

func TestEnsure_PersistsRotatedCredentials(t *testing.T) {
	adapter := &rotatingAdapter{}
	repo := newStubAccountRepo(multiAccount())
	o := NewReloadOrchestrator(ports.Registry{domain.ServiceMulti: adapter}, repo, zerolog.Nop())

	account := multiAccount()
	handle, err := o.Ensure(context.Background(), account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle == nil {
		t.Fatal("expected a live handle")
	}

	if len(repo.authUpdates) != 1 || repo.authUpdates[0] != "multi-1" {
		t.Fatalf("rotated credentials not persisted: %v", repo.authUpdates)
	}
	stored, _ := repo.FindByLocalID(context.Background(), "multi-1")
	if stored.Authentication.(domain.MultiAuth).RefreshToken != "rt+" {
		t.Errorf("stored token not rotated: %+v", stored.Authentication)
	}
	if account.Authentication.(domain.MultiAuth).RefreshToken != "rt+" {
		t.Errorf("in-memory account must see the rotated token too")
	}
}

func TestEnsure_PersistFailureFailsTheReload(t *testing.T) {
	adapter := &rotatingAdapter{}
	repo := newStubAccountRepo() // account missing, UpdateAuthentication fails
	o := NewReloadOrchestrator(ports.Registry{domain.ServiceMulti: adapter}, repo, zerolog.Nop())

	_, err := o.Ensure(context.Background(), multiAccount())
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected the persistence failure to surface, got %v", err)
	}
}

func TestEnsure_ReusesLiveSession(t *testing.T) {
	adapter := &rotatingAdapter{}
	repo := newStubAccountRepo(multiAccount())
	o := NewReloadOrchestrator(ports.Registry{domain.ServiceMulti: adapter}, repo, zerolog.Nop())

	account := multiAccount()
	first, _ := o.Ensure(context.Background(), account)
	second, _ := o.Ensure(context.Background(), account)
	if adapter.reloadCount != 1 {
		t.Errorf("expected a single reload, got %d", adapter.reloadCount)
	}
	if first != second {
		t.Errorf("expected the same handle, got %v and %v", first, second)
	}
}

func TestEnsure_SessionlessAdapter(t *testing.T) {
	repo := newStubAccountRepo()
	o := NewReloadOrchestrator(ports.Registry{domain.ServiceLocal: sessionlessAdapter{}}, repo, zerolog.Nop())

	handle, err := o.Ensure(context.Background(), &domain.Account{LocalID: "local-1", Service: domain.ServiceLocal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle != nil {
		t.Errorf("sessionless services must yield a nil handle, got %v", handle)
	}
}

func TestEnsure_UnknownService(t *testing.T) {
	o := NewReloadOrchestrator(ports.Registry{}, newStubAccountRepo(), zerolog.Nop())

	_, err := o.Ensure(context.Background(), multiAccount())
	if !errors.Is(err, domain.ErrServiceNotImplemented) {
		t.Errorf("expected ErrServiceNotImplemented, got %v", err)
	}
}

func TestExpire_ForcesReload(t *testing.T) {
	adapter := &rotatingAdapter{}
	repo := newStubAccountRepo(multiAccount())
	o := NewReloadOrchestrator(ports.Registry{domain.ServiceMulti: adapter}, repo, zerolog.Nop())

	account := multiAccount()
	_, _ = o.Ensure(context.Background(), account)
	o.Expire("multi-1")
	_, _ = o.Ensure(context.Background(), account)
	if adapter.reloadCount != 2 {
		t.Errorf("expected a reload after expiry, got %d", adapter.reloadCount)
	}
}

// Concurrent operations on the same account must collapse into one reload:
// the per-account lock serializes Ensure, and the second caller finds the
// session already live.
func TestEnsure_ConcurrentCallsSingleReload(t *testing.T) {
	adapter := &rotatingAdapter{slow: 10 * time.Millisecond}
	repo := newStubAccountRepo(multiAccount())
	o := NewReloadOrchestrator(ports.Registry{domain.ServiceMulti: adapter}, repo, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			account := multiAccount()
			if _, err := o.Ensure(context.Background(), account); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if adapter.reloadCount != 1 {
		t.Errorf("expected one reload for 8 concurrent calls, got %d", adapter.reloadCount)
	}
}

func TestDrop_ForgetsSession(t *testing.T) {
	adapter := &rotatingAdapter{}
	repo := newStubAccountRepo(multiAccount())
	o := NewReloadOrchestrator(ports.Registry{domain.ServiceMulti: adapter}, repo, zerolog.Nop())

	account := multiAccount()
	_, _ = o.Ensure(context.Background(), account)
	o.Drop("multi-1")
	_, _ = o.Ensure(context.Background(), account)
	if adapter.reloadCount != 2 {
		t.Errorf("expected a fresh reload after drop, got %d", adapter.reloadCount)
	}
}
