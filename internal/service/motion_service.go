package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// ============================================
// Motion Service
// ============================================

type ProposeInput struct {
	PlenumID string                 `json:"plenumId" validate:"required,uuid"`
	GroupID  int64                  `json:"groupId" validate:"gte=0"`
	Type     string                 `json:"type" validate:"required,max=20"`
	ParentID *string                `json:"parentId,omitempty" validate:"omitempty,uuid"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Draft    bool                   `json:"draft"`
}

type MotionService interface {
	Propose(ctx context.Context, userID string, input ProposeInput) (*repository.Motion, error)
	GetImmediatePending(ctx context.Context, userID, plenumID string, groupID int64) (*repository.Motion, error)
	Transition(ctx context.Context, userID, motionID, action string) (*repository.Motion, error)
	GetPendingMotions(ctx context.Context, userID, plenumID string, groupID int64) ([]*repository.Motion, error)
	GetMotion(ctx context.Context, userID, motionID string) (*repository.Motion, error)
	ListMotions(ctx context.Context, userID, plenumID string, groupID int64) ([]*repository.Motion, error)
	OfferedTypes(ctx context.Context, userID, plenumID string, groupID int64) ([]string, error)
}

type motionService struct {
	motionRepo    repository.MotionRepository
	plenumRepo    repository.PlenumRepository
	permissionSvc PermissionService
	pluginSvc     PluginService
	cache         PendingCache
	dispatcher    *hook.Dispatcher
	validate      *validator.Validate
	sanitizer     *bluemonday.Policy
}

func NewMotionService(
	motionRepo repository.MotionRepository,
	plenumRepo repository.PlenumRepository,
	permissionSvc PermissionService,
	pluginSvc PluginService,
	cache PendingCache,
	dispatcher *hook.Dispatcher,
) MotionService {
	if cache == nil {
		cache = noopCache{}
	}
	return &motionService{
		motionRepo:    motionRepo,
		plenumRepo:    plenumRepo,
		permissionSvc: permissionSvc,
		pluginSvc:     pluginSvc,
		cache:         cache,
		dispatcher:    dispatcher,
		validate:      validator.New(),
		sanitizer:     bluemonday.UGCPolicy(),
	}
}

// ============================================
// Scope helpers
// ============================================

func (s *motionService) loadPlenum(ctx context.Context, plenumID string) (*repository.Plenum, error) {
	plenum, err := s.plenumRepo.FindByID(ctx, plenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plenum: %w", err)
	}
	if plenum == nil {
		return nil, fmt.Errorf("%w: plenum %s", ErrNotFound, plenumID)
	}
	return plenum, nil
}

// buildEnv snapshots everything the procedure engine needs for one scope.
func (s *motionService) buildEnv(ctx context.Context, userID, plenumID string, groupID int64) (*procedure.Env, error) {
	caps, err := s.permissionSvc.Capabilities(ctx, userID, plenumID)
	if err != nil {
		return nil, err
	}
	settings, err := s.pluginSvc.TypeSettings(ctx)
	if err != nil {
		return nil, err
	}
	motions, err := s.motionRepo.FindByScope(ctx, plenumID, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load motions: %w", err)
	}
	return &procedure.Env{
		UserID:       userID,
		Capabilities: caps,
		Settings:     settings,
		Registry:     s.pluginSvc.Registry(),
		Agenda:       procedure.NewAgenda(motions),
	}, nil
}

// scope resolves the group and checks the user may view it.
func (s *motionService) scope(ctx context.Context, userID, plenumID string, groupID int64) (int64, error) {
	plenum, err := s.loadPlenum(ctx, plenumID)
	if err != nil {
		return 0, err
	}
	if err := s.permissionSvc.Require(ctx, userID, plenumID, types.CapView); err != nil {
		return 0, err
	}
	return s.permissionSvc.ResolveGroup(ctx, userID, plenum, groupID, false)
}

func (s *motionService) changed(ctx context.Context, motion *repository.Motion, userID string) {
	s.cache.InvalidatePending(ctx, motion.PlenumID)
	s.dispatcher.MotionUpdated(ctx, hook.AfterMotionUpdated{
		PlenumID: motion.PlenumID,
		GroupID:  motion.GroupID,
		MotionID: motion.ID,
		UserID:   userID,
	})
}

func (s *motionService) sanitize(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = s.sanitizeValue(v)
	}
	return out
}

func (s *motionService) sanitizeValue(v interface{}) interface{} {
	switch value := v.(type) {
	case string:
		return s.sanitizer.Sanitize(value)
	case map[string]interface{}:
		return s.sanitize(value)
	case []interface{}:
		out := make([]interface{}, len(value))
		for i, item := range value {
			out[i] = s.sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

// ============================================
// Propose
// ============================================

func (s *motionService) Propose(ctx context.Context, userID string, input ProposeInput) (*repository.Motion, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !types.IsValidMotionType(input.Type) {
		return nil, fmt.Errorf("%w: unknown motion type %q", ErrInvalidInput, input.Type)
	}

	plenum, err := s.loadPlenum(ctx, input.PlenumID)
	if err != nil {
		return nil, err
	}
	groupID, err := s.permissionSvc.ResolveGroup(ctx, userID, plenum, input.GroupID, true)
	if err != nil {
		return nil, err
	}

	env, err := s.buildEnv(ctx, userID, plenum.ID, groupID)
	if err != nil {
		return nil, err
	}

	motion := &repository.Motion{
		PlenumID:     plenum.ID,
		GroupID:      groupID,
		Type:         input.Type,
		UserCreated:  userID,
		UserModified: userID,
		Data:         s.sanitize(input.Data),
	}

	if input.Draft {
		if _, err := procedure.Eligible(env, motion.Type); err != nil {
			return nil, err
		}
		if err := checkParent(env, input.ParentID); err != nil {
			return nil, err
		}
		motion.Status = types.StatusDraft
		motion.ParentID = input.ParentID
		if err := s.motionRepo.Create(ctx, motion); err != nil {
			return nil, fmt.Errorf("failed to save draft: %w", err)
		}
		return motion, nil
	}

	if _, _, err := s.admit(env, motion, input.ParentID); err != nil {
		return nil, err
	}

	// Re-check against the latest committed floor right before the insert.
	fresh, err := s.buildEnv(ctx, userID, plenum.ID, groupID)
	if err != nil {
		return nil, err
	}
	status, parentID, err := s.admit(fresh, motion, input.ParentID)
	if err != nil {
		return nil, err
	}

	motion.Status = status
	motion.ParentID = parentID
	if err := s.motionRepo.Create(ctx, motion); err != nil {
		return nil, fmt.Errorf("failed to create motion: %w", err)
	}

	zap.L().Info("[Motion] Motion proposed",
		zap.String("motion", motion.ID),
		zap.String("plenum", motion.PlenumID),
		zap.Int64("group", motion.GroupID),
		zap.String("type", motion.Type),
		zap.String("status", motion.Status))

	s.changed(ctx, motion, userID)
	return motion, nil
}

// admit runs the floor check and attaches the motion to the immediately
// pending motion, the one it was found in order against.
func (s *motionService) admit(env *procedure.Env, motion *repository.Motion, parentID *string) (string, *string, error) {
	status, err := procedure.Admit(env, motion)
	if err != nil {
		return "", nil, err
	}
	if err := checkParent(env, parentID); err != nil {
		return "", nil, err
	}
	if immediate := env.Immediate(); immediate != nil {
		id := immediate.ID
		return status, &id, nil
	}
	return status, nil, nil
}

// checkParent accepts an explicit parent only when it holds the floor.
func checkParent(env *procedure.Env, parentID *string) error {
	if parentID == nil {
		return nil
	}
	immediate := env.Immediate()
	if immediate == nil || immediate.ID != *parentID {
		return fmt.Errorf("%w: parent must be the immediately pending motion", ErrInvalidInput)
	}
	return nil
}

// ============================================
// Transition
// ============================================

func (s *motionService) Transition(ctx context.Context, userID, motionID, action string) (*repository.Motion, error) {
	if !types.IsValidAction(action) {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}

	motion, err := s.motionRepo.FindByID(ctx, motionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load motion: %w", err)
	}
	if motion == nil {
		return nil, fmt.Errorf("%w: motion %s", ErrNotFound, motionID)
	}

	switch action {
	case types.ActionSubmit:
		return s.submit(ctx, userID, motion)
	case types.ActionDiscard:
		return motion, s.discard(ctx, userID, motion)
	}

	env, err := s.buildEnv(ctx, userID, motion.PlenumID, motion.GroupID)
	if err != nil {
		return nil, err
	}
	changes, err := procedure.Plan(env, motion, action)
	if err != nil {
		return nil, err
	}

	if err := s.motionRepo.ApplyChanges(ctx, changes, userID); err != nil {
		return nil, mapRepoError(err, "failed to update motion")
	}

	zap.L().Info("[Motion] Motion transitioned",
		zap.String("motion", motion.ID),
		zap.String("action", action),
		zap.String("user", userID),
		zap.Int("changes", len(changes)))

	motion.Status = changes[0].To
	motion.UserModified = userID
	s.changed(ctx, motion, userID)
	return motion, nil
}

func (s *motionService) submit(ctx context.Context, userID string, motion *repository.Motion) (*repository.Motion, error) {
	if motion.UserCreated != userID {
		return nil, fmt.Errorf("%w: only the creator may submit a draft", ErrForbidden)
	}
	if motion.Status != types.StatusDraft {
		return nil, fmt.Errorf("%w: motion is %s", ErrInvalidState, motion.Status)
	}

	env, err := s.buildEnv(ctx, userID, motion.PlenumID, motion.GroupID)
	if err != nil {
		return nil, err
	}
	// The draft's parent is replaced by whatever holds the floor now.
	status, parentID, err := s.admit(env, motion, nil)
	if err != nil {
		return nil, err
	}

	if err := s.motionRepo.Submit(ctx, motion.ID, status, parentID); err != nil {
		return nil, mapRepoError(err, "failed to submit motion")
	}
	motion.Status = status
	motion.ParentID = parentID
	s.changed(ctx, motion, userID)
	return motion, nil
}

func (s *motionService) discard(ctx context.Context, userID string, motion *repository.Motion) error {
	if motion.UserCreated != userID {
		return fmt.Errorf("%w: only the creator may discard a draft", ErrForbidden)
	}
	if motion.Status != types.StatusDraft {
		return fmt.Errorf("%w: only drafts can be discarded", ErrInvalidState)
	}
	s.dispatcher.MotionDeleting(ctx, hook.BeforeMotionDeleted{PlenumID: motion.PlenumID, MotionID: motion.ID})
	if err := s.motionRepo.Delete(ctx, motion.ID); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	return nil
}

// ============================================
// Queries
// ============================================

func (s *motionService) GetPendingMotions(ctx context.Context, userID, plenumID string, groupID int64) ([]*repository.Motion, error) {
	groupID, err := s.scope(ctx, userID, plenumID, groupID)
	if err != nil {
		return nil, err
	}
	return s.pending(ctx, plenumID, groupID)
}

func (s *motionService) pending(ctx context.Context, plenumID string, groupID int64) ([]*repository.Motion, error) {
	if cached, ok := s.cache.GetPending(ctx, plenumID, groupID); ok {
		return cached, nil
	}
	motions, err := s.motionRepo.FindPending(ctx, plenumID, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending motions: %w", err)
	}
	ordered := procedure.Precedence(s.pluginSvc.Registry(), motions)
	s.cache.SetPending(ctx, plenumID, groupID, ordered)
	return ordered, nil
}

func (s *motionService) GetImmediatePending(ctx context.Context, userID, plenumID string, groupID int64) (*repository.Motion, error) {
	pending, err := s.GetPendingMotions(ctx, userID, plenumID, groupID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return pending[0], nil
}

func (s *motionService) GetMotion(ctx context.Context, userID, motionID string) (*repository.Motion, error) {
	motion, err := s.motionRepo.FindByID(ctx, motionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load motion: %w", err)
	}
	if motion == nil {
		return nil, fmt.Errorf("%w: motion %s", ErrNotFound, motionID)
	}
	if motion.Status == types.StatusDraft && motion.UserCreated != userID {
		return nil, fmt.Errorf("%w: motion %s", ErrNotFound, motionID)
	}
	if _, err := s.scope(ctx, userID, motion.PlenumID, motion.GroupID); err != nil {
		return nil, err
	}

	zap.L().Info("[Motion] motion_viewed",
		zap.String("motion", motion.ID),
		zap.String("plenum", motion.PlenumID),
		zap.String("user", userID))
	return motion, nil
}

func (s *motionService) ListMotions(ctx context.Context, userID, plenumID string, groupID int64) ([]*repository.Motion, error) {
	groupID, err := s.scope(ctx, userID, plenumID, groupID)
	if err != nil {
		return nil, err
	}
	motions, err := s.motionRepo.FindByScope(ctx, plenumID, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load motions: %w", err)
	}
	return motions, nil
}

func (s *motionService) OfferedTypes(ctx context.Context, userID, plenumID string, groupID int64) ([]string, error) {
	groupID, err := s.scope(ctx, userID, plenumID, groupID)
	if err != nil {
		return nil, err
	}
	env, err := s.buildEnv(ctx, userID, plenumID, groupID)
	if err != nil {
		return nil, err
	}
	return procedure.Offered(env), nil
}
