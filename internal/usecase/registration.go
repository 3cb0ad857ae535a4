package usecase

import (
	"context"
	"fmt"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

// RegistrationService manages the singleton signup toggle.
type RegistrationService struct {
	settings port.RegistrationRepository
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(settings port.RegistrationRepository) *RegistrationService {
	return &RegistrationService{settings: settings}
}

// Status returns the current registration toggle.
func (s *RegistrationService) Status(ctx context.Context) (*domain.RegistrationSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registration settings: %w", err)
	}
	return settings, nil
}

// SetOpen flips the registration toggle.
func (s *RegistrationService) SetOpen(ctx context.Context, isOpen bool) (*domain.RegistrationSettings, error) {
	if err := s.settings.Set(ctx, isOpen); err != nil {
		return nil, fmt.Errorf("store registration settings: %w", err)
	}
	return &domain.RegistrationSettings{IsOpen: isOpen}, nil
}
