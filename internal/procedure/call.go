package procedure

import (
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// callPolicy calls the previous question on a resolution or amendment.
type callPolicy struct{}

func (callPolicy) Type() string { return types.MotionCall }

func (callPolicy) InOrder(env *Env, immediate *repository.Motion) bool {
	return immediate != nil &&
		env.can(types.CapMeet) &&
		!env.NeedsSecond(immediate) &&
		(immediate.Type == types.MotionResolve || immediate.Type == types.MotionAmend) &&
		!env.Agenda.HasChild(immediate.ID, types.MotionCall, types.StatusAdopted)
}

func (callPolicy) NeedsSecond(env *Env, motion *repository.Motion) bool {
	return secondRule(env, motion)
}

func (callPolicy) HasPrivilege() bool { return false }

func (callPolicy) CanClose(env *Env, motion *repository.Motion) bool {
	return defaultCanClose(env, motion)
}
