package meetingform

import (
	"context"

	"github.com/Marga-Ghale/plenum-backend/internal/types"
)

// Basic is the polling form: clients refetch the motion list every delay.
type Basic struct {
	deps *Deps
}

func NewBasic(deps *Deps) *Basic {
	return &Basic{deps: deps}
}

func (b *Basic) Name() string { return types.FormBasic }

func (b *Basic) Content(ctx context.Context, _ *Scope) (map[string]interface{}, error) {
	return map[string]interface{}{
		"delay": delayMillis(b.deps.config(ctx, types.FormBasic)),
	}, nil
}
