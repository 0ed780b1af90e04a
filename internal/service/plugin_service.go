package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PluginService manages the meeting form and motion type subplugins.
type PluginService interface {
	List(ctx context.Context, kind string) ([]*repository.Plugin, error)
	Enable(ctx context.Context, kind, name string) error
	Disable(ctx context.Context, kind, name string) error
	MoveUp(ctx context.Context, kind, name string) error
	MoveDown(ctx context.Context, kind, name string) error

	GetConfig(ctx context.Context, component string) (map[string]string, error)
	SetConfig(ctx context.Context, component, name, value string) error

	EnabledNames(ctx context.Context, kind string) ([]string, error)
	TypeSettings(ctx context.Context) (procedure.Settings, error)
	Registry() *procedure.Registry
}

type pluginService struct {
	pluginRepo repository.PluginRepository
	registry   *procedure.Registry
}

func NewPluginService(pluginRepo repository.PluginRepository, registry *procedure.Registry) PluginService {
	return &pluginService{pluginRepo: pluginRepo, registry: registry}
}

// Component returns the config component name of a subplugin, e.g. plenumtype_resolve.
func Component(kind, name string) string {
	return kind + "_" + name
}

func (s *pluginService) List(ctx context.Context, kind string) ([]*repository.Plugin, error) {
	if !types.IsValidPluginKind(kind) {
		return nil, fmt.Errorf("%w: unknown plugin kind %q", ErrInvalidInput, kind)
	}
	plugins, err := s.pluginRepo.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	return plugins, nil
}

func (s *pluginService) find(ctx context.Context, kind, name string) (*repository.Plugin, error) {
	if !types.IsValidPluginKind(kind) {
		return nil, fmt.Errorf("%w: unknown plugin kind %q", ErrInvalidInput, kind)
	}
	plugin, err := s.pluginRepo.Find(ctx, kind, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin: %w", err)
	}
	if plugin == nil {
		return nil, fmt.Errorf("%w: plugin %s_%s", ErrNotFound, kind, name)
	}
	return plugin, nil
}

// Enable and Disable only flip the flag. Stored plugin data is kept.
func (s *pluginService) Enable(ctx context.Context, kind, name string) error {
	return s.setEnabled(ctx, kind, name, true)
}

func (s *pluginService) Disable(ctx context.Context, kind, name string) error {
	return s.setEnabled(ctx, kind, name, false)
}

func (s *pluginService) setEnabled(ctx context.Context, kind, name string, enabled bool) error {
	if _, err := s.find(ctx, kind, name); err != nil {
		return err
	}
	if err := s.pluginRepo.SetEnabled(ctx, kind, name, enabled); err != nil {
		return fmt.Errorf("failed to update plugin: %w", err)
	}
	zap.L().Info("[Plugin] Plugin state changed",
		zap.String("plugin", Component(kind, name)), zap.Bool("enabled", enabled))
	return nil
}

func (s *pluginService) MoveUp(ctx context.Context, kind, name string) error {
	return s.move(ctx, kind, name, -1)
}

func (s *pluginService) MoveDown(ctx context.Context, kind, name string) error {
	return s.move(ctx, kind, name, 1)
}

// move swaps the plugin with its neighbour. Moving past either end is a no-op.
func (s *pluginService) move(ctx context.Context, kind, name string, step int) error {
	if _, err := s.find(ctx, kind, name); err != nil {
		return err
	}
	plugins, err := s.List(ctx, kind)
	if err != nil {
		return err
	}
	_, index, _ := lo.FindIndexOf(plugins, func(p *repository.Plugin) bool { return p.Name == name })
	target := index + step
	if index < 0 || target < 0 || target >= len(plugins) {
		return nil
	}
	if err := s.pluginRepo.SwapOrder(ctx, kind, name, plugins[target].Name); err != nil {
		return fmt.Errorf("failed to reorder plugins: %w", err)
	}
	return nil
}

func (s *pluginService) GetConfig(ctx context.Context, component string) (map[string]string, error) {
	cfg, err := s.pluginRepo.GetConfig(ctx, component)
	if err != nil {
		return nil, fmt.Errorf("failed to load config for %s: %w", component, err)
	}
	if cfg == nil {
		cfg = map[string]string{}
	}
	return cfg, nil
}

func (s *pluginService) SetConfig(ctx context.Context, component, name, value string) error {
	if component == "" || name == "" {
		return fmt.Errorf("%w: component and name are required", ErrInvalidInput)
	}
	if err := s.pluginRepo.SetConfig(ctx, component, name, value); err != nil {
		return fmt.Errorf("failed to store config: %w", err)
	}
	return nil
}

func (s *pluginService) EnabledNames(ctx context.Context, kind string) ([]string, error) {
	plugins, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(plugins, func(p *repository.Plugin, _ int) (string, bool) {
		return p.Name, p.Enabled
	}), nil
}

// TypeSettings builds the motion type settings the procedure engine consults.
func (s *pluginService) TypeSettings(ctx context.Context) (procedure.Settings, error) {
	plugins, err := s.List(ctx, types.PluginKindType)
	if err != nil {
		return procedure.Settings{}, err
	}

	settings := procedure.Settings{
		Enabled:       map[string]bool{},
		RequireSecond: map[string]bool{},
	}
	for _, p := range plugins {
		settings.Enabled[p.Name] = p.Enabled
		cfg, err := s.GetConfig(ctx, Component(types.PluginKindType, p.Name))
		if err != nil {
			return procedure.Settings{}, err
		}
		settings.RequireSecond[p.Name] = cfg["requiresecond"] == "1"
	}
	return settings, nil
}

func (s *pluginService) Registry() *procedure.Registry {
	return s.registry
}
