// Package meetingform holds the meeting form plugins: the client-side
// meeting experience of a plenum (polling, jitsi, jitsi2 and deft).
package meetingform

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/samber/lo"
)

// Plugins is the part of the plugin service the forms read.
type Plugins interface {
	GetConfig(ctx context.Context, component string) (map[string]string, error)
	EnabledNames(ctx context.Context, kind string) ([]string, error)
}

// Permissions is the part of the permission service the forms check.
type Permissions interface {
	HasCapability(ctx context.Context, userID, plenumID, capability string) bool
	Require(ctx context.Context, userID, plenumID, capability string) error
	ResolveGroup(ctx context.Context, userID string, plenum *repository.Plenum, requested int64, participate bool) (int64, error)
}

// Notifier pushes meeting events to connected clients.
type Notifier interface {
	BroadcastFloorChanged(plenumID string, groupID int64, floor map[string]interface{})
	BroadcastHandRaised(plenumID string, groupID int64, userID string, raised bool)
	BroadcastPeer(plenumID string, joined bool, peer map[string]interface{}, excludeUserID string)
	SendSignal(toUserID string, payload map[string]interface{})
}

// TokenIssuer signs short-lived participant tokens.
type TokenIssuer interface {
	IssueToken(userID string, ttl time.Duration, extra map[string]interface{}) (string, error)
}

type plenumFinder interface {
	FindByID(ctx context.Context, id string) (*repository.Plenum, error)
}

type pendingFinder interface {
	FindPending(ctx context.Context, plenumID string, groupID int64) ([]*repository.Motion, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*repository.User, error)
}

// Deps are shared by every form.
type Deps struct {
	WWWRoot        string
	SocketTokenTTL time.Duration

	Plugins     Plugins
	Permissions Permissions
	Plenums     plenumFinder
	Motions     pendingFinder
	Users       userFinder
	Registry    *procedure.Registry
	Notifier    Notifier
	Tokens      TokenIssuer
}

// Scope is the resolved meeting a request is about.
type Scope struct {
	UserID    string
	Plenum    *repository.Plenum
	GroupID   int64
	Chair     bool
	Pending   []*repository.Motion
	Immediate *repository.Motion
}

// Form is one meeting form plugin.
type Form interface {
	Name() string
	// Content returns the form specific part of the meeting page.
	Content(ctx context.Context, scope *Scope) (map[string]interface{}, error)
}

// Manager holds the registered forms.
type Manager struct {
	deps  *Deps
	mu    sync.RWMutex
	forms map[string]Form
}

func NewManager(deps *Deps) *Manager {
	return &Manager{deps: deps, forms: make(map[string]Form)}
}

func (m *Manager) Register(form Form) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forms[form.Name()] = form
}

// Get returns a registered form. Disabled forms are a state error so callers
// can tell them from unknown ones.
func (m *Manager) Get(ctx context.Context, name string) (Form, error) {
	m.mu.RLock()
	form, ok := m.forms[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: meeting form %q", service.ErrNotFound, name)
	}

	enabled, err := m.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(enabled, name) {
		return nil, fmt.Errorf("%w: meeting form %q is disabled", service.ErrInvalidState, name)
	}
	return form, nil
}

// Enabled lists the enabled forms that are also registered, in plugin order.
func (m *Manager) Enabled(ctx context.Context) ([]string, error) {
	names, err := m.deps.Plugins.EnabledNames(ctx, types.PluginKindForm)
	if err != nil {
		return nil, fmt.Errorf("failed to list meeting forms: %w", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Filter(names, func(name string, _ int) bool {
		_, ok := m.forms[name]
		return ok
	}), nil
}

// Content renders the meeting page data of a plenum for a user.
func (m *Manager) Content(ctx context.Context, userID, plenumID string, groupID int64) (map[string]interface{}, error) {
	scope, err := m.deps.scope(ctx, userID, plenumID, groupID, types.CapView)
	if err != nil {
		return nil, err
	}
	form, err := m.Get(ctx, scope.Plenum.Form)
	if err != nil {
		return nil, err
	}

	content, err := form.Content(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{
		"form":     form.Name(),
		"plenumId": scope.Plenum.ID,
		"groupId":  scope.GroupID,
		"chair":    scope.Chair,
		"motions":  scope.Pending,
	}
	for k, v := range content {
		out[k] = v
	}
	return out, nil
}

// scope loads the plenum, checks capability and resolves the group. Anything
// beyond viewing counts as participation for group resolution.
func (d *Deps) scope(ctx context.Context, userID, plenumID string, groupID int64, capability string) (*Scope, error) {
	plenum, err := d.Plenums.FindByID(ctx, plenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plenum: %w", err)
	}
	if plenum == nil {
		return nil, fmt.Errorf("%w: plenum %s", service.ErrNotFound, plenumID)
	}
	if err := d.Permissions.Require(ctx, userID, plenumID, capability); err != nil {
		return nil, err
	}
	group, err := d.Permissions.ResolveGroup(ctx, userID, plenum, groupID, capability != types.CapView)
	if err != nil {
		return nil, err
	}

	pending, err := d.pending(ctx, plenumID, group)
	if err != nil {
		return nil, err
	}
	return &Scope{
		UserID:    userID,
		Plenum:    plenum,
		GroupID:   group,
		Chair:     d.Permissions.HasCapability(ctx, userID, plenumID, types.CapPreside),
		Pending:   pending,
		Immediate: procedure.ImmediatePending(d.Registry, pending),
	}, nil
}

func (d *Deps) pending(ctx context.Context, plenumID string, groupID int64) ([]*repository.Motion, error) {
	motions, err := d.Motions.FindPending(ctx, plenumID, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending motions: %w", err)
	}
	return procedure.Precedence(d.Registry, motions), nil
}

func (d *Deps) immediate(ctx context.Context, plenumID string, groupID int64) (*repository.Motion, error) {
	pending, err := d.pending(ctx, plenumID, groupID)
	if err != nil {
		return nil, err
	}
	return procedure.ImmediatePending(d.Registry, pending), nil
}

func (d *Deps) config(ctx context.Context, form string) map[string]string {
	cfg, err := d.Plugins.GetConfig(ctx, service.Component(types.PluginKindForm, form))
	if err != nil || cfg == nil {
		return map[string]string{}
	}
	return cfg
}

func (d *Deps) userName(ctx context.Context, userID string) string {
	if d.Users == nil {
		return ""
	}
	user, err := d.Users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return ""
	}
	return user.Name
}

// delayMillis reads a polling delay in seconds and returns milliseconds.
func delayMillis(cfg map[string]string) int {
	seconds := atoiOr(cfg["delay"], 3)
	if seconds <= 0 {
		seconds = 3
	}
	return seconds * 1000
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
