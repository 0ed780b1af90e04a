package service

import (
	"context"
	"testing"

	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pluginNames(plugins []*repository.Plugin) []string {
	return lo.Map(plugins, func(p *repository.Plugin, _ int) string { return p.Name })
}

func TestDisableFormKeepsData(t *testing.T) {
	ctx := context.Background()
	repo := newFakePluginRepo()
	svc := NewPluginService(repo, procedure.DefaultRegistry())

	require.NoError(t, svc.Disable(ctx, types.PluginKindForm, types.FormJitsi))

	enabled, err := svc.EnabledNames(ctx, types.PluginKindForm)
	require.NoError(t, err)
	assert.NotContains(t, enabled, types.FormJitsi)

	cfg, err := svc.GetConfig(ctx, Component(types.PluginKindForm, types.FormJitsi))
	require.NoError(t, err)
	assert.Equal(t, "meet.jit.si", cfg["server"])

	require.NoError(t, svc.Enable(ctx, types.PluginKindForm, types.FormJitsi))
	enabled, err = svc.EnabledNames(ctx, types.PluginKindForm)
	require.NoError(t, err)
	assert.Contains(t, enabled, types.FormJitsi)
}

func TestPluginErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewPluginService(newFakePluginRepo(), procedure.DefaultRegistry())

	assert.ErrorIs(t, svc.Enable(ctx, "plenumwidget", "x"), ErrInvalidInput)
	assert.ErrorIs(t, svc.Disable(ctx, types.PluginKindForm, "zoom"), ErrNotFound)
	assert.ErrorIs(t, svc.SetConfig(ctx, "", "delay", "3"), ErrInvalidInput)
}

func TestMovePlugins(t *testing.T) {
	ctx := context.Background()
	svc := NewPluginService(newFakePluginRepo(), procedure.DefaultRegistry())

	require.NoError(t, svc.MoveUp(ctx, types.PluginKindForm, types.FormJitsi))
	plugins, err := svc.List(ctx, types.PluginKindForm)
	require.NoError(t, err)
	assert.Equal(t, []string{"jitsi", "basic", "jitsi2", "deft"}, pluginNames(plugins))

	require.NoError(t, svc.MoveUp(ctx, types.PluginKindForm, types.FormJitsi), "moving the first plugin up is a no-op")
	require.NoError(t, svc.MoveDown(ctx, types.PluginKindForm, types.FormDeft), "moving the last plugin down is a no-op")
	require.NoError(t, svc.MoveDown(ctx, types.PluginKindForm, types.FormBasic))

	plugins, err = svc.List(ctx, types.PluginKindForm)
	require.NoError(t, err)
	assert.Equal(t, []string{"jitsi", "jitsi2", "basic", "deft"}, pluginNames(plugins))
}

func TestTypeSettings(t *testing.T) {
	ctx := context.Background()
	repo := newFakePluginRepo()
	svc := NewPluginService(repo, procedure.DefaultRegistry())

	require.NoError(t, svc.Disable(ctx, types.PluginKindType, types.MotionCall))
	require.NoError(t, svc.SetConfig(ctx, "plenumtype_amend", "requiresecond", "0"))

	settings, err := svc.TypeSettings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.IsEnabled(types.MotionCall))
	assert.True(t, settings.IsEnabled(types.MotionResolve))
	assert.True(t, settings.RequireSecond[types.MotionResolve])
	assert.False(t, settings.RequireSecond[types.MotionAmend])
	assert.False(t, settings.RequireSecond[types.MotionOrder])
}
