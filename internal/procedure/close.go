package procedure

import (
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// closePolicy moves to adjourn. Adoption ends the session.
type closePolicy struct{}

func (closePolicy) Type() string { return types.MotionClose }

func (closePolicy) InOrder(env *Env, immediate *repository.Motion) bool {
	return env.can(types.CapMeet) &&
		immediate != nil &&
		immediate.Type != types.MotionOrder &&
		immediate.Type != types.MotionClose
}

func (closePolicy) NeedsSecond(env *Env, motion *repository.Motion) bool {
	return secondRule(env, motion)
}

func (closePolicy) HasPrivilege() bool { return true }

func (closePolicy) CanClose(env *Env, motion *repository.Motion) bool {
	return defaultCanClose(env, motion)
}

// AdoptEffects closes everything else still pending in the scope.
func (closePolicy) AdoptEffects(env *Env, motion *repository.Motion) []*repository.Motion {
	var out []*repository.Motion
	for _, m := range env.Agenda.Motions() {
		if m.ID != motion.ID && m.Status == types.StatusPending {
			out = append(out, m)
		}
	}
	return out
}
