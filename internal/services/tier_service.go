package services

import (
	"context"
	"errors"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/security"
)

// ErrTierNotFound is returned for an id the API does not list.
var ErrTierNotFound = errors.New("Integrity category not found.")

// TierBackend is the part of the API client used by TierService.
type TierBackend interface {
	ListTiers(ctx context.Context, token string) ([]models.IntegrityTier, error)
	CreateTier(ctx context.Context, token string, t models.IntegrityTier) error
	UpdateTier(ctx context.Context, token string, t models.IntegrityTier) error
	DeleteTier(ctx context.Context, token string, id models.ID) error
}

// TierService manages integrity tiers.
type TierService struct {
	api      TierBackend
	validate *security.ValidationService
}

// NewTierService creates a TierService.
func NewTierService(api TierBackend, validate *security.ValidationService) *TierService {
	return &TierService{api: api, validate: validate}
}

// List returns every tier.
func (s *TierService) List(ctx context.Context, token string) ([]models.IntegrityTier, error) {
	return s.api.ListTiers(ctx, token)
}

// FindTier returns the tier with id from tiers.
func FindTier(tiers []models.IntegrityTier, id models.ID) (*models.IntegrityTier, error) {
	for i := range tiers {
		if tiers[i].ID == id {
			return &tiers[i], nil
		}
	}
	return nil, ErrTierNotFound
}

// Save creates tier when it has no id and updates it otherwise.
//
// known is the listing the form was rendered from. The duplicate-name check
// runs against it without contacting the API; a nil known means the caller
// has no listing and one is fetched first. Validation and the check both run
// before any write. On failure nothing is sent and the error is a
// *security.ValidationError or a *models.DuplicateTierError.
func (s *TierService) Save(ctx context.Context, token string, tier models.IntegrityTier, known []models.IntegrityTier) error {
	if err := s.validate.Struct(tier); err != nil {
		return err
	}

	if known == nil {
		var err error
		if known, err = s.api.ListTiers(ctx, token); err != nil {
			return err
		}
	}
	if err := models.CheckTierUnique(known, tier); err != nil {
		return err
	}

	if tier.ID == "" {
		return s.api.CreateTier(ctx, token, tier)
	}
	return s.api.UpdateTier(ctx, token, tier)
}

// Delete removes a tier.
func (s *TierService) Delete(ctx context.Context, token string, id models.ID) error {
	return s.api.DeleteTier(ctx, token, id)
}
