package procedure

import (
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// amendPolicy amends a resolution or, one level down, another amendment.
type amendPolicy struct{}

func (amendPolicy) Type() string { return types.MotionAmend }

func (amendPolicy) InOrder(env *Env, immediate *repository.Motion) bool {
	if !env.can(types.CapMeet) || immediate == nil {
		return false
	}
	switch immediate.Type {
	case types.MotionResolve:
	case types.MotionAmend:
		// no amendment of an amendment to an amendment
		if immediate.ParentID != nil {
			if parent := env.Agenda.Get(*immediate.ParentID); parent != nil && parent.Type == types.MotionAmend {
				return false
			}
		}
	default:
		return false
	}
	return !env.NeedsSecond(immediate)
}

func (amendPolicy) NeedsSecond(env *Env, motion *repository.Motion) bool {
	return secondRule(env, motion)
}

func (amendPolicy) HasPrivilege() bool { return false }

func (amendPolicy) CanClose(env *Env, motion *repository.Motion) bool {
	return defaultCanClose(env, motion)
}
