package procedure

import (
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// orderPolicy raises a point of order. The chair rules on it.
type orderPolicy struct{}

func (orderPolicy) Type() string { return types.MotionOrder }

func (orderPolicy) InOrder(env *Env, immediate *repository.Motion) bool {
	return env.can(types.CapMeet) &&
		immediate != nil &&
		immediate.Type != types.MotionOrder
}

func (orderPolicy) NeedsSecond(*Env, *repository.Motion) bool { return false }

func (orderPolicy) HasPrivilege() bool { return true }

// CanClose only lets the creator withdraw; the chair answers with a ruling.
func (orderPolicy) CanClose(env *Env, motion *repository.Motion) bool {
	return motion.UserCreated == env.UserID && motion.Status == types.StatusPending
}

func (orderPolicy) RuledByChair() bool { return true }
