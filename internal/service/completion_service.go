package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

type CompletionState struct {
	Tracked  bool `json:"tracked"`
	Complete bool `json:"complete"`
	Motions  int  `json:"motions"`
	Required int  `json:"required"`
}

type Overview struct {
	PlenumID string `json:"plenumId"`
	Name     string `json:"name"`
	Sessions int    `json:"sessions"`
}

type CompletionService interface {
	CompletionState(ctx context.Context, plenumID, userID string) (*CompletionState, error)
	Overview(ctx context.Context, userID, plenumID string) (*Overview, error)
}

type completionService struct {
	motionRepo    repository.MotionRepository
	plenumRepo    repository.PlenumRepository
	permissionSvc PermissionService
}

func NewCompletionService(motionRepo repository.MotionRepository, plenumRepo repository.PlenumRepository, permissionSvc PermissionService) CompletionService {
	return &completionService{motionRepo: motionRepo, plenumRepo: plenumRepo, permissionSvc: permissionSvc}
}

func (s *completionService) plenum(ctx context.Context, plenumID string) (*repository.Plenum, error) {
	plenum, err := s.plenumRepo.FindByID(ctx, plenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plenum: %w", err)
	}
	if plenum == nil {
		return nil, fmt.Errorf("%w: plenum %s", ErrNotFound, plenumID)
	}
	return plenum, nil
}

// CompletionState is complete once the user made the required number of
// motions. A requirement of zero disables tracking.
func (s *completionService) CompletionState(ctx context.Context, plenumID, userID string) (*CompletionState, error) {
	plenum, err := s.plenum(ctx, plenumID)
	if err != nil {
		return nil, err
	}
	state := &CompletionState{Required: plenum.CompletionMotions}
	if plenum.CompletionMotions <= 0 {
		return state, nil
	}

	count, err := s.motionRepo.CountByUser(ctx, plenumID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count motions: %w", err)
	}
	state.Tracked = true
	state.Motions = count
	state.Complete = count >= plenum.CompletionMotions
	return state, nil
}

// Overview counts the sessions held, one per open motion. Only the chair sees it.
func (s *completionService) Overview(ctx context.Context, userID, plenumID string) (*Overview, error) {
	plenum, err := s.plenum(ctx, plenumID)
	if err != nil {
		return nil, err
	}
	if err := s.permissionSvc.Require(ctx, userID, plenumID, types.CapPreside); err != nil {
		return nil, err
	}
	sessions, err := s.motionRepo.CountByType(ctx, plenumID, types.MotionOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	return &Overview{PlenumID: plenum.ID, Name: plenum.Name, Sessions: sessions}, nil
}
