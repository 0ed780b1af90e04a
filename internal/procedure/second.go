package procedure

import (
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// secondPolicy seconds the motion on the floor.
type secondPolicy struct{}

func (secondPolicy) Type() string { return types.MotionSecond }

func (secondPolicy) InOrder(env *Env, immediate *repository.Motion) bool {
	return env.can(types.CapMeet) &&
		immediate != nil &&
		immediate.UserCreated != env.UserID &&
		env.NeedsSecond(immediate)
}

func (secondPolicy) NeedsSecond(*Env, *repository.Motion) bool { return false }

func (secondPolicy) HasPrivilege() bool { return false }

func (secondPolicy) CanClose(env *Env, motion *repository.Motion) bool {
	return defaultCanClose(env, motion)
}

func (secondPolicy) AdoptOnSubmit() bool { return true }
