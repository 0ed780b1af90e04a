package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/shopspring/decimal"
)

// GradeService stores one numeric grade per user and plenum (item 0).
type GradeService interface {
	CreateEmptyGrade(ctx context.Context, plenumID, userID string) (*repository.Grade, error)
	StoreGrade(ctx context.Context, graderID, plenumID, userID string, value decimal.Decimal) (*repository.Grade, error)
	GetGrade(ctx context.Context, plenumID, userID string) (*repository.Grade, error)
	UserHasGrade(ctx context.Context, plenumID, userID string) (bool, error)
	ListGrades(ctx context.Context, graderID, plenumID string) ([]*repository.Grade, error)
}

const gradeItem = 0

type gradeService struct {
	gradeRepo     repository.GradeRepository
	plenumRepo    repository.PlenumRepository
	permissionSvc PermissionService
}

func NewGradeService(gradeRepo repository.GradeRepository, plenumRepo repository.PlenumRepository, permissionSvc PermissionService) GradeService {
	return &gradeService{gradeRepo: gradeRepo, plenumRepo: plenumRepo, permissionSvc: permissionSvc}
}

func (s *gradeService) plenum(ctx context.Context, plenumID string) (*repository.Plenum, error) {
	plenum, err := s.plenumRepo.FindByID(ctx, plenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plenum: %w", err)
	}
	if plenum == nil {
		return nil, fmt.Errorf("%w: plenum %s", ErrNotFound, plenumID)
	}
	return plenum, nil
}

func (s *gradeService) CreateEmptyGrade(ctx context.Context, plenumID, userID string) (*repository.Grade, error) {
	if _, err := s.plenum(ctx, plenumID); err != nil {
		return nil, err
	}
	existing, err := s.gradeRepo.Find(ctx, plenumID, userID, gradeItem)
	if err != nil {
		return nil, fmt.Errorf("failed to load grade: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	grade := &repository.Grade{PlenumID: plenumID, UserID: userID, ItemNumber: gradeItem}
	if err := s.gradeRepo.Create(ctx, grade); err != nil {
		return nil, fmt.Errorf("failed to create grade: %w", err)
	}
	return grade, nil
}

func (s *gradeService) StoreGrade(ctx context.Context, graderID, plenumID, userID string, value decimal.Decimal) (*repository.Grade, error) {
	plenum, err := s.plenum(ctx, plenumID)
	if err != nil {
		return nil, err
	}
	if err := s.permissionSvc.Require(ctx, graderID, plenumID, types.CapGrade); err != nil {
		return nil, err
	}
	if value.IsNegative() || value.GreaterThan(plenum.Grade) {
		return nil, fmt.Errorf("%w: grade must be between 0 and %s", ErrInvalidInput, plenum.Grade.String())
	}

	grade := &repository.Grade{
		PlenumID:   plenumID,
		UserID:     userID,
		ItemNumber: gradeItem,
		Grade:      decimal.NewNullDecimal(value),
		Grader:     graderID,
	}
	if err := s.gradeRepo.Upsert(ctx, grade); err != nil {
		return nil, fmt.Errorf("failed to store grade: %w", err)
	}
	return grade, nil
}

func (s *gradeService) GetGrade(ctx context.Context, plenumID, userID string) (*repository.Grade, error) {
	grade, err := s.gradeRepo.Find(ctx, plenumID, userID, gradeItem)
	if err != nil {
		return nil, fmt.Errorf("failed to load grade: %w", err)
	}
	if grade == nil {
		return nil, fmt.Errorf("%w: no grade for user %s", ErrNotFound, userID)
	}
	return grade, nil
}

func (s *gradeService) UserHasGrade(ctx context.Context, plenumID, userID string) (bool, error) {
	grade, err := s.gradeRepo.Find(ctx, plenumID, userID, gradeItem)
	if err != nil {
		return false, fmt.Errorf("failed to load grade: %w", err)
	}
	return grade != nil && grade.Grade.Valid, nil
}

func (s *gradeService) ListGrades(ctx context.Context, graderID, plenumID string) ([]*repository.Grade, error) {
	if _, err := s.plenum(ctx, plenumID); err != nil {
		return nil, err
	}
	if err := s.permissionSvc.Require(ctx, graderID, plenumID, types.CapGrade); err != nil {
		return nil, err
	}
	grades, err := s.gradeRepo.FindByPlenum(ctx, plenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	return grades, nil
}
