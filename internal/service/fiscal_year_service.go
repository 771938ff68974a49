package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

// FiscalYearProvider resolves the fiscal year used when a caller omits one.
type FiscalYearProvider interface {
	ActiveFiscalYearCode(ctx context.Context) (string, error)
}

// StaticFiscalYear always reports the same fiscal year code.
type StaticFiscalYear string

// ActiveFiscalYearCode implements FiscalYearProvider.
func (s StaticFiscalYear) ActiveFiscalYearCode(context.Context) (string, error) {
	if s == "" {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no active fiscal year")
	}
	return string(s), nil
}

type activeFiscalYearStore interface {
	Active(ctx context.Context) (*models.FiscalYear, error)
}

// FiscalYearService reads the active fiscal year, falling back to a configured code.
type FiscalYearService struct {
	repo     activeFiscalYearStore
	fallback string
	logger   *zap.Logger
}

// NewFiscalYearService constructs the provider.
func NewFiscalYearService(repo activeFiscalYearStore, fallback string, logger *zap.Logger) *FiscalYearService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FiscalYearService{repo: repo, fallback: strings.TrimSpace(fallback), logger: logger}
}

// ActiveFiscalYearCode implements FiscalYearProvider.
func (s *FiscalYearService) ActiveFiscalYearCode(ctx context.Context) (string, error) {
	fy, err := s.repo.Active(ctx)
	if err == nil {
		return fy.Code, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		if s.fallback != "" {
			return s.fallback, nil
		}
		return "", appErrors.Clone(appErrors.ErrNotFound, "no active fiscal year")
	}
	if s.fallback != "" {
		s.logger.Warn("active fiscal year lookup failed, using configured fallback", zap.String("fallback", s.fallback), zap.Error(err))
		return s.fallback, nil
	}
	return "", appErrors.Internal(err, "failed to resolve active fiscal year")
}

func resolveFiscalYear(ctx context.Context, provider FiscalYearProvider, explicit string) (string, error) {
	if fy := strings.TrimSpace(explicit); fy != "" {
		return fy, nil
	}
	if provider == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "fiscal year is required")
	}
	return provider.ActiveFiscalYearCode(ctx)
}
