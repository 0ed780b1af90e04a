package procedure

import (
	"sort"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/samber/lo"
)

// Precedence orders the pending motions by who holds the floor: privileged
// motions first, then the most recently raised. Ties on the creation time
// fall back to the id so the order is total.
func Precedence(reg *Registry, motions []*repository.Motion) []*repository.Motion {
	pending := lo.Filter(motions, func(m *repository.Motion, _ int) bool {
		return m != nil && m.Status == types.StatusPending
	})
	sort.SliceStable(pending, func(i, j int) bool {
		return precedes(reg, pending[i], pending[j])
	})
	return pending
}

// ImmediatePending returns the motion holding the floor, or nil.
func ImmediatePending(reg *Registry, motions []*repository.Motion) *repository.Motion {
	pending := Precedence(reg, motions)
	if len(pending) == 0 {
		return nil
	}
	return pending[0]
}

func precedes(reg *Registry, a, b *repository.Motion) bool {
	if pa, pb := reg.Privileged(a), reg.Privileged(b); pa != pb {
		return pa
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
