package procedure

import (
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/samber/lo"
)

// Policy is the rule set of one motion type. Policies are pure predicates.
type Policy interface {
	Type() string
	// InOrder reports whether a motion of this type may be raised while
	// immediate holds the floor. immediate is nil when nothing is pending.
	InOrder(env *Env, immediate *repository.Motion) bool
	NeedsSecond(env *Env, motion *repository.Motion) bool
	HasPrivilege() bool
	CanClose(env *Env, motion *repository.Motion) bool
}

// AutoAdopter is implemented by types recorded as adopted once submitted.
type AutoAdopter interface {
	AdoptOnSubmit() bool
}

// ChairRuling is implemented by types resolved by a ruling of the chair
// (allow/deny) rather than by a vote (adopt/decline).
type ChairRuling interface {
	RuledByChair() bool
}

// Effector is implemented by types whose adoption closes other motions.
type Effector interface {
	AdoptEffects(env *Env, motion *repository.Motion) []*repository.Motion
}

// Restricted is implemented by types that need more than the meet capability.
type Restricted interface {
	RequiredCapability() string
}

// Registry maps motion types to their policies in display order.
type Registry struct {
	policies map[string]Policy
	order    []string
}

func NewRegistry(policies ...Policy) *Registry {
	r := &Registry{policies: make(map[string]Policy)}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// DefaultRegistry registers every built-in motion type.
func DefaultRegistry() *Registry {
	return NewRegistry(
		openPolicy{},
		resolvePolicy{},
		amendPolicy{},
		secondPolicy{},
		callPolicy{},
		orderPolicy{},
		closePolicy{},
	)
}

func (r *Registry) Register(p Policy) {
	if _, exists := r.policies[p.Type()]; !exists {
		r.order = append(r.order, p.Type())
	}
	r.policies[p.Type()] = p
}

func (r *Registry) Lookup(motionType string) (Policy, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.policies[motionType]
	return p, ok
}

func (r *Registry) Types() []string {
	return append([]string(nil), r.order...)
}

// Privileged reports whether motion's type carries privilege.
func (r *Registry) Privileged(motion *repository.Motion) bool {
	p, ok := r.Lookup(motion.Type)
	return ok && p.HasPrivilege()
}

// Offered lists the enabled types the acting user may raise right now.
func Offered(env *Env) []string {
	immediate := env.Immediate()
	return lo.Filter(env.Registry.Types(), func(t string, _ int) bool {
		if !env.Settings.IsEnabled(t) {
			return false
		}
		p, _ := env.Registry.Lookup(t)
		return env.can(requiredCapability(p)) && p.InOrder(env, immediate)
	})
}

func requiredCapability(p Policy) string {
	if r, ok := p.(Restricted); ok {
		return r.RequiredCapability()
	}
	return types.CapMeet
}

// defaultCanClose lets the creator withdraw a pending motion and the chair
// close any motion.
func defaultCanClose(env *Env, motion *repository.Motion) bool {
	if motion.UserCreated == env.UserID && motion.Status == types.StatusPending {
		return true
	}
	return env.can(types.CapPreside)
}

// secondRule applies the configured requirement unless an adopted second
// already exists.
func secondRule(env *Env, motion *repository.Motion) bool {
	if !env.Settings.secondRequired(motion.Type) {
		return false
	}
	return !env.Agenda.HasChild(motion.ID, types.MotionSecond, types.StatusAdopted)
}
