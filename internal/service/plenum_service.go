package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PlenumInput struct {
	CourseID          string                 `json:"courseId" validate:"required"`
	Name              string                 `json:"name" validate:"required,max=255"`
	Intro             string                 `json:"intro"`
	Form              string                 `json:"form" validate:"required"`
	Grade             decimal.Decimal        `json:"grade"`
	GroupMode         int                    `json:"groupMode" validate:"gte=0,lte=2"`
	CompletionMotions int                    `json:"completionMotions" validate:"gte=0"`
	FormOptions       map[string]interface{} `json:"formOptions,omitempty"`
}

type PlenumService interface {
	Create(ctx context.Context, input PlenumInput) (*repository.Plenum, error)
	Get(ctx context.Context, userID, plenumID string) (*repository.Plenum, error)
	ListByCourse(ctx context.Context, courseID string) ([]*repository.Plenum, error)
	Update(ctx context.Context, plenumID string, input PlenumInput) (*repository.Plenum, error)
	Delete(ctx context.Context, plenumID string) error

	AssignRole(ctx context.Context, plenumID, userID, role string) error
	UnassignRole(ctx context.Context, plenumID, userID, role string) error
	ListRoles(ctx context.Context, plenumID string) ([]*repository.RoleAssignment, error)
	SetOverride(ctx context.Context, override *repository.CapabilityOverride) error
	AddGroupMember(ctx context.Context, plenumID string, groupID int64, userID string) error
}

type plenumService struct {
	plenumRepo    repository.PlenumRepository
	motionRepo    repository.MotionRepository
	roleRepo      repository.RoleRepository
	permissionSvc PermissionService
	pluginSvc     PluginService
	dispatcher    *hook.Dispatcher
	validate      *validator.Validate
}

func NewPlenumService(
	plenumRepo repository.PlenumRepository,
	motionRepo repository.MotionRepository,
	roleRepo repository.RoleRepository,
	permissionSvc PermissionService,
	pluginSvc PluginService,
	dispatcher *hook.Dispatcher,
) PlenumService {
	return &plenumService{
		plenumRepo:    plenumRepo,
		motionRepo:    motionRepo,
		roleRepo:      roleRepo,
		permissionSvc: permissionSvc,
		pluginSvc:     pluginSvc,
		dispatcher:    dispatcher,
		validate:      validator.New(),
	}
}

func (s *plenumService) checkInput(ctx context.Context, input PlenumInput) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if input.Grade.IsNegative() {
		return fmt.Errorf("%w: maximum grade cannot be negative", ErrInvalidInput)
	}
	forms, err := s.pluginSvc.EnabledNames(ctx, types.PluginKindForm)
	if err != nil {
		return err
	}
	if !lo.Contains(forms, input.Form) {
		return fmt.Errorf("%w: meeting form %q is not enabled", ErrInvalidInput, input.Form)
	}
	return nil
}

func (s *plenumService) Create(ctx context.Context, input PlenumInput) (*repository.Plenum, error) {
	if err := s.checkInput(ctx, input); err != nil {
		return nil, err
	}
	options, err := mergeFormDefaults(ctx, s.pluginSvc, input.Form, input.FormOptions)
	if err != nil {
		return nil, err
	}

	plenum := &repository.Plenum{
		CourseID:          input.CourseID,
		Name:              input.Name,
		Intro:             input.Intro,
		Form:              input.Form,
		Grade:             input.Grade,
		GroupMode:         input.GroupMode,
		CompletionMotions: input.CompletionMotions,
		FormOptions:       options,
	}
	if err := s.plenumRepo.Create(ctx, plenum); err != nil {
		return nil, fmt.Errorf("failed to create plenum: %w", err)
	}
	zap.L().Info("[Plenum] Plenum created", zap.String("plenum", plenum.ID), zap.String("form", plenum.Form))
	return plenum, nil
}

func (s *plenumService) find(ctx context.Context, plenumID string) (*repository.Plenum, error) {
	plenum, err := s.plenumRepo.FindByID(ctx, plenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plenum: %w", err)
	}
	if plenum == nil {
		return nil, fmt.Errorf("%w: plenum %s", ErrNotFound, plenumID)
	}
	return plenum, nil
}

func (s *plenumService) Get(ctx context.Context, userID, plenumID string) (*repository.Plenum, error) {
	plenum, err := s.find(ctx, plenumID)
	if err != nil {
		return nil, err
	}
	if err := s.permissionSvc.Require(ctx, userID, plenumID, types.CapView); err != nil {
		return nil, err
	}
	return plenum, nil
}

func (s *plenumService) ListByCourse(ctx context.Context, courseID string) ([]*repository.Plenum, error) {
	plenums, err := s.plenumRepo.FindByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plenums: %w", err)
	}
	return plenums, nil
}

func (s *plenumService) Update(ctx context.Context, plenumID string, input PlenumInput) (*repository.Plenum, error) {
	plenum, err := s.find(ctx, plenumID)
	if err != nil {
		return nil, err
	}
	input.CourseID = plenum.CourseID
	if err := s.checkInput(ctx, input); err != nil {
		return nil, err
	}

	plenum.Name = input.Name
	plenum.Intro = input.Intro
	plenum.Grade = input.Grade
	plenum.GroupMode = input.GroupMode
	plenum.CompletionMotions = input.CompletionMotions
	if input.Form != plenum.Form || input.FormOptions != nil {
		plenum.Form = input.Form
		if plenum.FormOptions, err = mergeFormDefaults(ctx, s.pluginSvc, input.Form, input.FormOptions); err != nil {
			return nil, err
		}
	}
	if err := s.plenumRepo.Update(ctx, plenum); err != nil {
		return nil, fmt.Errorf("failed to update plenum: %w", err)
	}
	return plenum, nil
}

func (s *plenumService) Delete(ctx context.Context, plenumID string) error {
	plenum, err := s.find(ctx, plenumID)
	if err != nil {
		return err
	}
	motions, err := s.motionRepo.FindByPlenum(ctx, plenum.ID)
	if err != nil {
		return fmt.Errorf("failed to load motions: %w", err)
	}
	for _, m := range motions {
		s.dispatcher.MotionDeleting(ctx, hook.BeforeMotionDeleted{PlenumID: plenum.ID, MotionID: m.ID})
	}
	if err := s.plenumRepo.Delete(ctx, plenum.ID); err != nil {
		return fmt.Errorf("failed to delete plenum: %w", err)
	}
	zap.L().Info("[Plenum] Plenum deleted", zap.String("plenum", plenum.ID))
	return nil
}

// ============================================
// Roles and groups
// ============================================

func (s *plenumService) AssignRole(ctx context.Context, plenumID, userID, role string) error {
	if !types.IsValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if _, err := s.find(ctx, plenumID); err != nil {
		return err
	}
	return s.roleRepo.Assign(ctx, &repository.RoleAssignment{PlenumID: plenumID, UserID: userID, Role: role})
}

func (s *plenumService) UnassignRole(ctx context.Context, plenumID, userID, role string) error {
	return s.roleRepo.Unassign(ctx, plenumID, userID, role)
}

func (s *plenumService) ListRoles(ctx context.Context, plenumID string) ([]*repository.RoleAssignment, error) {
	if _, err := s.find(ctx, plenumID); err != nil {
		return nil, err
	}
	return s.roleRepo.FindByPlenum(ctx, plenumID)
}

func (s *plenumService) SetOverride(ctx context.Context, override *repository.CapabilityOverride) error {
	if !types.IsValidRole(override.Role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, override.Role)
	}
	if override.Permission != types.PermissionAllow && override.Permission != types.PermissionProhibit {
		return fmt.Errorf("%w: permission must be allow or prohibit", ErrInvalidInput)
	}
	if _, err := s.find(ctx, override.PlenumID); err != nil {
		return err
	}
	return s.roleRepo.SetOverride(ctx, override)
}

func (s *plenumService) AddGroupMember(ctx context.Context, plenumID string, groupID int64, userID string) error {
	if groupID <= 0 {
		return fmt.Errorf("%w: group id must be positive", ErrInvalidInput)
	}
	if _, err := s.find(ctx, plenumID); err != nil {
		return err
	}
	return s.roleRepo.AddGroupMember(ctx, plenumID, groupID, userID)
}

// mergeFormDefaults fills missing form options from the form's site config.
// Credentials stay in the site config only.
func mergeFormDefaults(ctx context.Context, pluginSvc PluginService, form string, options map[string]interface{}) (map[string]interface{}, error) {
	defaults, err := pluginSvc.GetConfig(ctx, Component(types.PluginKindForm, form))
	if err != nil {
		return nil, err
	}
	merged := map[string]interface{}{}
	for k, v := range defaults {
		if k == "secret" || k == "appid" {
			continue
		}
		merged[k] = v
	}
	for k, v := range options {
		merged[k] = v
	}
	return merged, nil
}
