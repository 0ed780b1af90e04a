package procedure

import (
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// Eligible checks that motionType is known, enabled and that env.UserID holds
// the capability to raise it. Drafts are saved after this check only.
func Eligible(env *Env, motionType string) (Policy, error) {
	policy, ok := env.Registry.Lookup(motionType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown motion type %q", ErrInvalidInput, motionType)
	}
	if !env.Settings.IsEnabled(motionType) {
		return nil, fmt.Errorf("%w: motion type %s is disabled", ErrInvalidState, motionType)
	}
	if !env.can(requiredCapability(policy)) {
		return nil, fmt.Errorf("%w: missing %s", ErrForbidden, requiredCapability(policy))
	}
	return policy, nil
}

// Admit decides the status a motion enters with when raised or submitted by
// env.UserID. On top of Eligible it requires the motion to be in order against
// the current floor.
func Admit(env *Env, motion *repository.Motion) (string, error) {
	policy, err := Eligible(env, motion.Type)
	if err != nil {
		return "", err
	}
	if !policy.InOrder(env, env.Immediate()) {
		return "", fmt.Errorf("%w: %s motion is not in order", ErrInvalidState, motion.Type)
	}
	if a, ok := policy.(AutoAdopter); ok && a.AdoptOnSubmit() {
		return types.StatusAdopted, nil
	}
	return types.StatusPending, nil
}

// Plan validates a chair or participant action on a pending motion and returns
// the status changes to commit. Pending descendants of every motion reaching a
// terminal status are closed with it.
func Plan(env *Env, motion *repository.Motion, action string) ([]repository.StatusChange, error) {
	policy, ok := env.Registry.Lookup(motion.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown motion type %q", ErrInvalidState, motion.Type)
	}
	if motion.Status != types.StatusPending {
		return nil, fmt.Errorf("%w: motion is %s", ErrInvalidState, motion.Status)
	}

	var to string
	switch action {
	case types.ActionAdopt, types.ActionAllow:
		if !env.can(types.CapPreside) {
			return nil, fmt.Errorf("%w: only the chair may %s", ErrForbidden, action)
		}
		if err := checkRuling(policy, action); err != nil {
			return nil, err
		}
		if immediate := env.Immediate(); immediate == nil || immediate.ID != motion.ID {
			return nil, fmt.Errorf("%w: motion does not have the floor", ErrInvalidState)
		}
		if policy.NeedsSecond(env, motion) {
			return nil, fmt.Errorf("%w: motion has not been seconded", ErrInvalidState)
		}
		to = types.StatusAdopted
	case types.ActionDecline, types.ActionDeny:
		if !env.can(types.CapPreside) {
			return nil, fmt.Errorf("%w: only the chair may %s", ErrForbidden, action)
		}
		if err := checkRuling(policy, action); err != nil {
			return nil, err
		}
		to = types.StatusDeclined
	case types.ActionClose:
		if !policy.CanClose(env, motion) {
			return nil, fmt.Errorf("%w: motion may not be closed by this user", ErrForbidden)
		}
		to = types.StatusClosed
	default:
		return nil, fmt.Errorf("%w: unsupported action %q", ErrInvalidInput, action)
	}

	changes := []repository.StatusChange{{MotionID: motion.ID, From: motion.Status, To: to}}
	touched := map[string]bool{motion.ID: true}
	finished := []string{motion.ID}

	if to == types.StatusAdopted {
		if e, ok := policy.(Effector); ok {
			for _, m := range e.AdoptEffects(env, motion) {
				if touched[m.ID] {
					continue
				}
				touched[m.ID] = true
				finished = append(finished, m.ID)
				changes = append(changes, repository.StatusChange{MotionID: m.ID, From: m.Status, To: types.StatusClosed})
			}
		}
	}

	for _, id := range finished {
		for _, m := range env.Agenda.PendingDescendants(id) {
			if touched[m.ID] {
				continue
			}
			touched[m.ID] = true
			changes = append(changes, repository.StatusChange{MotionID: m.ID, From: m.Status, To: types.StatusClosed})
		}
	}
	return changes, nil
}

func checkRuling(policy Policy, action string) error {
	ruled := false
	if r, ok := policy.(ChairRuling); ok {
		ruled = r.RuledByChair()
	}
	if !ruled && (action == types.ActionAllow || action == types.ActionDeny) {
		return fmt.Errorf("%w: %s motions are adopted or declined, not ruled on", ErrInvalidInput, policy.Type())
	}
	return nil
}
