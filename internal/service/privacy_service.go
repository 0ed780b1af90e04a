package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PrivacyProvider is implemented by meeting forms that keep per-user data.
type PrivacyProvider interface {
	Name() string
	PlenumIDsForUser(ctx context.Context, userID string) ([]string, error)
	ExportUserData(ctx context.Context, plenumID, userID string) (interface{}, error)
	DeleteDataForUser(ctx context.Context, plenumIDs []string, userID string) error
	DeleteDataForUsers(ctx context.Context, plenumID string, userIDs []string) error
	DeleteDataForContext(ctx context.Context, plenumID string) error
}

type PlenumExport struct {
	PlenumID string                 `json:"plenumId"`
	Name     string                 `json:"name"`
	Motions  []*repository.Motion   `json:"motions"`
	Grade    *repository.Grade      `json:"grade,omitempty"`
	Forms    map[string]interface{} `json:"forms,omitempty"`
}

type PrivacyService interface {
	RegisterProvider(provider PrivacyProvider)
	ContextsForUser(ctx context.Context, userID string) ([]string, error)
	ExportUserData(ctx context.Context, userID string, plenumIDs []string) ([]*PlenumExport, error)
	DeleteDataForUser(ctx context.Context, userID string, plenumIDs []string) error
	DeleteDataForUsers(ctx context.Context, plenumID string, userIDs []string) error
	DeleteDataForContext(ctx context.Context, plenumID string) error
}

// AnonymousUserID replaces the owner of retained motions after erasure.
var AnonymousUserID = uuid.Nil.String()

type privacyService struct {
	motionRepo repository.MotionRepository
	gradeRepo  repository.GradeRepository
	plenumRepo repository.PlenumRepository
	cache      PendingCache
	providers  []PrivacyProvider
}

func NewPrivacyService(
	motionRepo repository.MotionRepository,
	gradeRepo repository.GradeRepository,
	plenumRepo repository.PlenumRepository,
	cache PendingCache,
) PrivacyService {
	if cache == nil {
		cache = noopCache{}
	}
	return &privacyService{
		motionRepo: motionRepo,
		gradeRepo:  gradeRepo,
		plenumRepo: plenumRepo,
		cache:      cache,
	}
}

func (s *privacyService) RegisterProvider(provider PrivacyProvider) {
	s.providers = append(s.providers, provider)
}

func (s *privacyService) ContextsForUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.motionRepo.FindPlenumIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find motion contexts: %w", err)
	}
	gradeIDs, err := s.gradeRepo.FindPlenumIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find grade contexts: %w", err)
	}
	ids = append(ids, gradeIDs...)

	for _, p := range s.providers {
		formIDs, err := p.PlenumIDsForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to find %s contexts: %w", p.Name(), err)
		}
		ids = append(ids, formIDs...)
	}

	ids = lo.Uniq(ids)
	sort.Strings(ids)
	return ids, nil
}

// ExportUserData includes drafts so the user sees everything stored about them.
func (s *privacyService) ExportUserData(ctx context.Context, userID string, plenumIDs []string) ([]*PlenumExport, error) {
	var exports []*PlenumExport
	for _, plenumID := range plenumIDs {
		plenum, err := s.plenumRepo.FindByID(ctx, plenumID)
		if err != nil {
			return nil, fmt.Errorf("failed to load plenum: %w", err)
		}
		if plenum == nil {
			continue
		}

		motions, err := s.motionRepo.FindByUser(ctx, plenumID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to export motions: %w", err)
		}
		grade, err := s.gradeRepo.Find(ctx, plenumID, userID, gradeItem)
		if err != nil {
			return nil, fmt.Errorf("failed to export grade: %w", err)
		}

		export := &PlenumExport{
			PlenumID: plenumID,
			Name:     plenum.Name,
			Motions:  motions,
			Grade:    grade,
			Forms:    map[string]interface{}{},
		}
		for _, p := range s.providers {
			data, err := p.ExportUserData(ctx, plenumID, userID)
			if err != nil {
				return nil, fmt.Errorf("failed to export %s data: %w", p.Name(), err)
			}
			if data != nil {
				export.Forms[p.Name()] = data
			}
		}
		exports = append(exports, export)
	}
	return exports, nil
}

// DeleteDataForUser removes drafts, anonymizes the remaining motions and
// erases grades and form data.
func (s *privacyService) DeleteDataForUser(ctx context.Context, userID string, plenumIDs []string) error {
	if len(plenumIDs) == 0 {
		return nil
	}

	drafts, err := s.motionRepo.DeleteDraftsByUser(ctx, plenumIDs, userID)
	if err != nil {
		return fmt.Errorf("failed to delete drafts: %w", err)
	}
	anonymized, err := s.motionRepo.AnonymizeUser(ctx, plenumIDs, userID, AnonymousUserID)
	if err != nil {
		return fmt.Errorf("failed to anonymize motions: %w", err)
	}
	if err := s.gradeRepo.DeleteByUser(ctx, plenumIDs, userID); err != nil {
		return fmt.Errorf("failed to delete grades: %w", err)
	}
	for _, p := range s.providers {
		if err := p.DeleteDataForUser(ctx, plenumIDs, userID); err != nil {
			return fmt.Errorf("failed to delete %s data: %w", p.Name(), err)
		}
	}
	for _, plenumID := range plenumIDs {
		s.cache.InvalidatePending(ctx, plenumID)
	}

	zap.L().Info("[Privacy] User data deleted",
		zap.String("user", userID),
		zap.Int("contexts", len(plenumIDs)),
		zap.Int("drafts", len(drafts)),
		zap.Int64("anonymized", anonymized))
	return nil
}

func (s *privacyService) DeleteDataForUsers(ctx context.Context, plenumID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	for _, userID := range userIDs {
		if _, err := s.motionRepo.DeleteDraftsByUser(ctx, []string{plenumID}, userID); err != nil {
			return fmt.Errorf("failed to delete drafts: %w", err)
		}
		if _, err := s.motionRepo.AnonymizeUser(ctx, []string{plenumID}, userID, AnonymousUserID); err != nil {
			return fmt.Errorf("failed to anonymize motions: %w", err)
		}
	}
	if err := s.gradeRepo.DeleteByUsers(ctx, plenumID, userIDs); err != nil {
		return fmt.Errorf("failed to delete grades: %w", err)
	}
	for _, p := range s.providers {
		if err := p.DeleteDataForUsers(ctx, plenumID, userIDs); err != nil {
			return fmt.Errorf("failed to delete %s data: %w", p.Name(), err)
		}
	}
	s.cache.InvalidatePending(ctx, plenumID)
	return nil
}

func (s *privacyService) DeleteDataForContext(ctx context.Context, plenumID string) error {
	if err := s.motionRepo.DeleteByPlenum(ctx, plenumID); err != nil {
		return fmt.Errorf("failed to delete motions: %w", err)
	}
	if err := s.gradeRepo.DeleteByPlenum(ctx, plenumID); err != nil {
		return fmt.Errorf("failed to delete grades: %w", err)
	}
	for _, p := range s.providers {
		if err := p.DeleteDataForContext(ctx, plenumID); err != nil {
			return fmt.Errorf("failed to delete %s data: %w", p.Name(), err)
		}
	}
	s.cache.InvalidatePending(ctx, plenumID)
	zap.L().Info("[Privacy] Context data deleted", zap.String("plenum", plenumID))
	return nil
}
