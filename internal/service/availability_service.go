package service

import (
	"context"

	"github.com/fleetgo/dispatch-api/internal/auth"
	"github.com/fleetgo/dispatch-api/internal/models"
	apperrors "github.com/fleetgo/dispatch-api/pkg/errors"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

// AvailabilityService resolves which drivers a dispatcher may assign
type AvailabilityService struct {
	users  UserStore
	logger logger.Logger
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(users UserStore, logger logger.Logger) *AvailabilityService {
	return &AvailabilityService{
		users:  users,
		logger: logger,
	}
}

// ListAvailableDrivers returns the drivers the caller may assign to an order:
// active drivers in the caller's company (narrowed to the caller's shop if
// they have one) who are not on a trip. The returned list is advisory; the
// assignment re-checks availability under a row lock.
func (s *AvailabilityService) ListAvailableDrivers(ctx context.Context, identity *auth.Identity) ([]models.AvailableDriver, error) {
	companyID, err := resolveCompanyScope(identity)
	if err != nil {
		return nil, err
	}

	drivers, err := s.users.ListAvailableDrivers(ctx, companyID, identity.ShopID)

	if err != nil {
		s.logger.Error("Failed to list available drivers", "error", err, "companyID", companyID)
		return nil, apperrors.NewInternalError("failed to list available drivers")
	}

	return drivers, nil
}

// resolveCompanyScope extracts the caller's company scope. Dispatch
// operations are meaningless without one, so its absence is a request error
// rather than an authorization failure.
func resolveCompanyScope(identity *auth.Identity) (string, error) {
	if identity == nil || !identity.CompanyID.Valid || identity.CompanyID.String == "" {
		return "", apperrors.NewScopeResolutionError("caller has no company scope")
	}
	return identity.CompanyID.String, nil
}
