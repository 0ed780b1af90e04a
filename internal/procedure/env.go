// Package procedure holds the parliamentary rules for motions: the type
// policies, the immediate-pending resolver and the transition planner. It does
// no I/O; callers hand it snapshots of the motions in scope.
package procedure

import (
	"errors"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
)

// Capabilities answers capability checks for the acting user.
type Capabilities interface {
	Has(capability string) bool
}

// CapabilitySet is a resolved set of capabilities.
type CapabilitySet map[string]bool

func (s CapabilitySet) Has(capability string) bool {
	return s[capability]
}

// Settings carries the per-type configuration.
type Settings struct {
	// Enabled lists enabled motion types. A nil map enables every type.
	Enabled       map[string]bool
	RequireSecond map[string]bool
}

// DefaultSettings enables every type and requires a second for main,
// subsidiary and adjourn motions.
func DefaultSettings() Settings {
	return Settings{
		RequireSecond: map[string]bool{
			types.MotionResolve: true,
			types.MotionAmend:   true,
			types.MotionCall:    true,
			types.MotionClose:   true,
		},
	}
}

func (s Settings) IsEnabled(motionType string) bool {
	if s.Enabled == nil {
		return true
	}
	return s.Enabled[motionType]
}

func (s Settings) secondRequired(motionType string) bool {
	return s.RequireSecond[motionType] && s.IsEnabled(types.MotionSecond)
}

// Env is everything a policy may consult.
type Env struct {
	UserID       string
	Capabilities Capabilities
	Settings     Settings
	Registry     *Registry
	Agenda       *Agenda
}

func (e *Env) can(capability string) bool {
	return e.Capabilities != nil && e.Capabilities.Has(capability)
}

// NeedsSecond evaluates the policy of motion's own type.
func (e *Env) NeedsSecond(motion *repository.Motion) bool {
	if motion == nil || e.Registry == nil {
		return false
	}
	policy, ok := e.Registry.Lookup(motion.Type)
	if !ok {
		return false
	}
	return policy.NeedsSecond(e, motion)
}

// Immediate returns the motion holding the floor in the agenda.
func (e *Env) Immediate() *repository.Motion {
	return ImmediatePending(e.Registry, e.Agenda.Motions())
}

// Agenda is a read-only snapshot of the non-draft motions in one scope.
type Agenda struct {
	motions  []*repository.Motion
	byID     map[string]*repository.Motion
	children map[string][]*repository.Motion
}

func NewAgenda(motions []*repository.Motion) *Agenda {
	a := &Agenda{
		byID:     make(map[string]*repository.Motion, len(motions)),
		children: make(map[string][]*repository.Motion),
	}
	for _, m := range motions {
		if m == nil || m.Status == types.StatusDraft {
			continue
		}
		a.motions = append(a.motions, m)
		a.byID[m.ID] = m
		if m.ParentID != nil {
			a.children[*m.ParentID] = append(a.children[*m.ParentID], m)
		}
	}
	return a
}

func (a *Agenda) Motions() []*repository.Motion {
	if a == nil {
		return nil
	}
	return a.motions
}

func (a *Agenda) Get(id string) *repository.Motion {
	if a == nil {
		return nil
	}
	return a.byID[id]
}

func (a *Agenda) Children(id string) []*repository.Motion {
	if a == nil {
		return nil
	}
	return a.children[id]
}

// HasChild reports whether motion id has a child of the given type and status.
func (a *Agenda) HasChild(id, motionType, status string) bool {
	for _, child := range a.Children(id) {
		if child.Type == motionType && child.Status == status {
			return true
		}
	}
	return false
}

// PendingDescendants walks the subtree below id breadth first.
func (a *Agenda) PendingDescendants(id string) []*repository.Motion {
	var out []*repository.Motion
	queue := []string{id}
	seen := map[string]bool{id: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range a.Children(current) {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			if child.Status == types.StatusPending {
				out = append(out, child)
			}
			queue = append(queue, child.ID)
		}
	}
	return out
}
