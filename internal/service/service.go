package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/config"
	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")

	// Shared with the procedure engine so callers match on one set of errors.
	ErrForbidden    = procedure.ErrForbidden
	ErrInvalidState = procedure.ErrInvalidState
	ErrInvalidInput = procedure.ErrInvalidInput
)

// PendingCache caches the precedence-ordered pending motions of a scope.
type PendingCache interface {
	GetPending(ctx context.Context, plenumID string, groupID int64) ([]*repository.Motion, bool)
	SetPending(ctx context.Context, plenumID string, groupID int64, motions []*repository.Motion)
	InvalidatePending(ctx context.Context, plenumID string)
}

type noopCache struct{}

func (noopCache) GetPending(context.Context, string, int64) ([]*repository.Motion, bool) {
	return nil, false
}
func (noopCache) SetPending(context.Context, string, int64, []*repository.Motion) {}
func (noopCache) InvalidatePending(context.Context, string)                       {}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth       AuthService
	Permission PermissionService
	Plugin     PluginService
	Plenum     PlenumService
	Motion     MotionService
	Grade      GradeService
	Report     ReportService
	Privacy    PrivacyService
	Backup     BackupService
	Completion CompletionService
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config     *config.Config
	Repos      *repository.Repositories
	Cache      PendingCache
	Dispatcher *hook.Dispatcher
	Registry   *procedure.Registry
}

func NewServices(deps *ServiceDeps) *Services {
	cache := deps.Cache
	if cache == nil {
		cache = noopCache{}
	}
	registry := deps.Registry
	if registry == nil {
		registry = procedure.DefaultRegistry()
	}

	permissionService := NewPermissionService(deps.Repos.RoleRepo, deps.Repos.PlenumRepo)
	pluginService := NewPluginService(deps.Repos.PluginRepo, registry)

	motionService := NewMotionService(
		deps.Repos.MotionRepo,
		deps.Repos.PlenumRepo,
		permissionService,
		pluginService,
		cache,
		deps.Dispatcher,
	)

	return &Services{
		Auth:       NewAuthService(deps.Config),
		Permission: permissionService,
		Plugin:     pluginService,
		Plenum:     NewPlenumService(deps.Repos.PlenumRepo, deps.Repos.MotionRepo, deps.Repos.RoleRepo, permissionService, pluginService, deps.Dispatcher),
		Motion:     motionService,
		Grade:      NewGradeService(deps.Repos.GradeRepo, deps.Repos.PlenumRepo, permissionService),
		Report:     NewReportService(deps.Repos.ReportRepo, deps.Repos.PlenumRepo, permissionService, pluginService),
		Privacy: NewPrivacyService(
			deps.Repos.MotionRepo,
			deps.Repos.GradeRepo,
			deps.Repos.PlenumRepo,
			cache,
		),
		Backup: NewBackupService(
			deps.Config,
			deps.Repos.PlenumRepo,
			deps.Repos.MotionRepo,
			deps.Repos.GradeRepo,
			pluginService,
		),
		Completion: NewCompletionService(deps.Repos.MotionRepo, deps.Repos.PlenumRepo, permissionService),
	}
}

// mapRepoError turns storage conflicts into state errors.
func mapRepoError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrStaleStatus) {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
