package procedure

import (
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// resolvePolicy is a main motion proposing a resolution.
type resolvePolicy struct{}

func (resolvePolicy) Type() string { return types.MotionResolve }

func (resolvePolicy) InOrder(env *Env, immediate *repository.Motion) bool {
	return env.can(types.CapMeet) &&
		immediate != nil &&
		immediate.Type == types.MotionOpen
}

func (resolvePolicy) NeedsSecond(env *Env, motion *repository.Motion) bool {
	return secondRule(env, motion)
}

func (resolvePolicy) HasPrivilege() bool { return false }

func (resolvePolicy) CanClose(env *Env, motion *repository.Motion) bool {
	return defaultCanClose(env, motion)
}
