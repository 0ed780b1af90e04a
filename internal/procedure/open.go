package procedure

import (
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// openPolicy opens a session. It stays pending until the session ends.
type openPolicy struct{}

func (openPolicy) Type() string { return types.MotionOpen }

func (openPolicy) InOrder(env *Env, immediate *repository.Motion) bool {
	return immediate == nil && env.can(types.CapPreside)
}

func (openPolicy) NeedsSecond(*Env, *repository.Motion) bool { return false }

func (openPolicy) HasPrivilege() bool { return false }

func (openPolicy) CanClose(env *Env, motion *repository.Motion) bool {
	return defaultCanClose(env, motion)
}

func (openPolicy) RequiredCapability() string { return types.CapPreside }
