package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
)

// AccountService manages the stored account set. It owns identity assignment
// and the linking rules between primary and external accounts.
type AccountService struct {
	repo    ports.AccountRepository
	reloads *ReloadOrchestrator
	logger  zerolog.Logger
}

func NewAccountService(repo ports.AccountRepository, reloads *ReloadOrchestrator, logger zerolog.Logger) *AccountService {
	return &AccountService{repo: repo, reloads: reloads, logger: logger}
}

// Create stores a new account. The local ID is assigned here, never by the
// caller, and IsExternal always derives from the service tag.
func (s *AccountService) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account.Service.String() == "unknown" {
		return nil, fmt.Errorf("create account: unknown service: %w", domain.ErrServiceNotImplemented)
	}

	stored := *account
	stored.LocalID = uuid.NewString()
	stored.IsExternal = account.Service.External()

	if err := s.repo.Create(ctx, &stored); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info().
		Str("account", stored.LocalID).
		Str("service", stored.Service.String()).
		Bool("external", stored.IsExternal).
		Msg("account created")
	return &stored, nil
}

func (s *AccountService) Get(ctx context.Context, localID string) (*domain.Account, error) {
	return s.repo.FindByLocalID(ctx, localID)
}

func (s *AccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.repo.List(ctx)
}

// Link attaches an external account to a primary one. Both sides are checked
// so a primary can never end up in another primary's linked set.
func (s *AccountService) Link(ctx context.Context, primaryLocalID, externalLocalID string) error {
	primary, err := s.repo.FindByLocalID(ctx, primaryLocalID)
	if err != nil {
		return err
	}
	if primary.IsExternal {
		return fmt.Errorf("link to %s: %w", primaryLocalID, domain.ErrNotPrimary)
	}

	external, err := s.repo.FindByLocalID(ctx, externalLocalID)
	if err != nil {
		return err
	}
	if !external.IsExternal {
		return fmt.Errorf("link %s: %w", externalLocalID, domain.ErrNotExternal)
	}

	if err := s.repo.Link(ctx, primaryLocalID, externalLocalID); err != nil {
		return fmt.Errorf("link account: %w", err)
	}
	s.logger.Info().
		Str("primary", primaryLocalID).
		Str("external", externalLocalID).
		Msg("accounts linked")
	return nil
}

// Remove deletes the stored account and drops any live session it held.
func (s *AccountService) Remove(ctx context.Context, localID string) error {
	if err := s.repo.Remove(ctx, localID); err != nil {
		return err
	}
	s.reloads.Drop(localID)
	return nil
}
