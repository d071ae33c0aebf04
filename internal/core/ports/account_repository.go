package ports

import (
	"context"

	"github.com/papillon/aggregator/internal/core/domain"
)

// AccountRepository is the persistence boundary for stored accounts. Live
// sessions are never persisted; accounts always load cold.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByLocalID(ctx context.Context, localID string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	// UpdateAuthentication writes back a refreshed credential payload. Called
	// by the reload orchestrator after every successful reload so that
	// rotated tokens are never held only in memory.
	UpdateAuthentication(ctx context.Context, localID string, auth domain.Authentication) error
	// Link attaches an external account to a primary account's linked set.
	Link(ctx context.Context, primaryLocalID, externalLocalID string) error
	Remove(ctx context.Context, localID string) error
}
