package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

type memSeenStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemSeenStore() *memSeenStore {
	return &memSeenStore{seen: make(map[string]bool)}
}

func (s *memSeenStore) Seen(_ context.Context, accountLocalID, newsID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[accountLocalID+":"+newsID], nil
}

func (s *memSeenStore) Mark(_ context.Context, accountLocalID, newsID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[accountLocalID+":"+newsID] = true
	return nil
}

type captureNotifier struct {
	mu            sync.Mutex
	notifications []ports.Notification
}

func (n *captureNotifier) Notify(_ context.Context, notification ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

func newRefreshFixture(news []domain.Information) (*RefreshService, *captureNotifier, *memSeenStore) {
	school := &fakeSchool{service: domain.ServicePronote, news: news}
	repo := newStubAccountRepo(primaryWithLinks())
	registry := ports.Registry{domain.ServicePronote: school}
	dispatch := newDispatcher(repo, registry)
	seen := newMemSeenStore()
	notifier := &captureNotifier{}
	svc := NewRefreshService(repo, dispatch, seen, notifier, 30*time.Second, zerolog.Nop())
	return svc, notifier, seen
}

func TestRun_SingleNewItemDetailedNotification(t *testing.T) {
	svc, notifier, _ := newRefreshFixture([]domain.Information{{
		ID:      "n1",
		Title:   "Sortie scolaire",
		Content: "Le départ est prévu à 8h devant l'établissement.",
	}})

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.notifications))
	}
	n := notifier.notifications[0]
	if n.Title != "Sortie scolaire" {
		t.Errorf("single item must carry its own title, got %q", n.Title)
	}
	if !strings.Contains(n.Body, "départ") {
		t.Errorf("single item must carry a content summary, got %q", n.Body)
	}
}

func TestRun_MultipleNewItemsGroupedNotification(t *testing.T) {
	svc, notifier, _ := newRefreshFixture([]domain.Information{
		{ID: "n1", Title: "Un"},
		{ID: "n2", Title: "Deux"},
		{ID: "n3", Title: "Trois"},
	})

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.notifications) != 1 {
		t.Fatalf("expected a single grouped notification, got %d", len(notifier.notifications))
	}
	if !strings.Contains(notifier.notifications[0].Body, "3") {
		t.Errorf("grouped notification must carry the count, got %q", notifier.notifications[0].Body)
	}
}

func TestRun_SeenItemsAreSilent(t *testing.T) {
	svc, notifier, _ := newRefreshFixture([]domain.Information{{ID: "n1", Title: "Un"}})

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(notifier.notifications) != 1 {
		t.Errorf("second sweep must not re-announce seen items, got %d notifications", len(notifier.notifications))
	}
}

func TestRun_FailingAccountIsLoggedAndSkipped(t *testing.T) {
	school := &fakeSchool{service: domain.ServicePronote, newsErr: errors.New("vendor down")}
	repo := newStubAccountRepo(primaryWithLinks())
	dispatch := newDispatcher(repo, ports.Registry{domain.ServicePronote: school})
	svc := NewRefreshService(repo, dispatch, newMemSeenStore(), &captureNotifier{}, 30*time.Second, zerolog.Nop())

	if err := svc.Run(context.Background()); err != nil {
		t.Errorf("per-account failures must not fail the sweep: %v", err)
	}
}

func TestRun_BudgetExhaustionReturnsPartial(t *testing.T) {
	school := &fakeSchool{service: domain.ServicePronote}
	repo := newStubAccountRepo(primaryWithLinks())
	dispatch := newDispatcher(repo, ports.Registry{domain.ServicePronote: school})
	svc := NewRefreshService(repo, dispatch, newMemSeenStore(), &captureNotifier{}, 30*time.Second, zerolog.Nop())

	// A parent deadline in the past makes the budgeted context expire
	// synchronously, before the first account.
	parent, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err := svc.Run(parent)
	if !errors.Is(err, domain.ErrPartialRefresh) {
		t.Errorf("expected ErrPartialRefresh, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("the context error must stay inspectable, got %v", err)
	}
}

func TestRun_ExternalAccountsAreSkipped(t *testing.T) {
	repo := newStubAccountRepo(externalAccount("ext-ts", domain.ServiceTurboself))
	dispatch := newDispatcher(repo, ports.Registry{})
	notifier := &captureNotifier{}
	svc := NewRefreshService(repo, dispatch, newMemSeenStore(), notifier, 30*time.Second, zerolog.Nop())

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.notifications) != 0 {
		t.Errorf("external accounts have no news feed, got %d notifications", len(notifier.notifications))
	}
}
