// internal/socket/relay.go
package socket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"go.uber.org/zap"
)

// Stream is the redis stream the relay reads and writes.
type Stream interface {
	PublishMotionUpdate(ctx context.Context, fields map[string]interface{}) error
	ReadMotionUpdates(ctx context.Context, lastID string, block time.Duration) ([]map[string]interface{}, string, error)
}

// Relay fans motion updates out to the other API instances. Events are
// tagged with the instance id so an instance skips its own.
type Relay struct {
	stream     Stream
	instanceID string
	target     *hook.Dispatcher
	block      time.Duration
}

// NewRelay returns a relay that replays remote events on target. target
// should hold only listeners that are local to an instance, such as socket
// broadcasts.
func NewRelay(stream Stream, instanceID string, target *hook.Dispatcher) *Relay {
	return &Relay{
		stream:     stream,
		instanceID: instanceID,
		target:     target,
		block:      5 * time.Second,
	}
}

// Publish is registered as an after-motion-updated listener.
func (r *Relay) Publish(ctx context.Context, e hook.AfterMotionUpdated) error {
	return r.stream.PublishMotionUpdate(ctx, map[string]interface{}{
		"instance": r.instanceID,
		"plenum":   e.PlenumID,
		"group":    strconv.FormatInt(e.GroupID, 10),
		"motion":   e.MotionID,
		"user":     e.UserID,
	})
}

// Run consumes the stream until ctx is cancelled. Only events appended after
// Run starts are seen.
func (r *Relay) Run(ctx context.Context) {
	zap.L().Info("[Relay] Motion update relay started", zap.String("instance", r.instanceID))
	lastID := "$"
	for {
		if ctx.Err() != nil {
			return
		}

		events, next, err := r.stream.ReadMotionUpdates(ctx, lastID, r.block)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn("[Relay] Stream read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		lastID = next

		for _, fields := range events {
			event, origin, err := decodeMotionUpdate(fields)
			if err != nil {
				zap.L().Warn("[Relay] Skipping malformed event", zap.Error(err))
				continue
			}
			if origin == r.instanceID {
				continue
			}
			r.target.MotionUpdated(ctx, event)
		}
	}
}

func decodeMotionUpdate(fields map[string]interface{}) (hook.AfterMotionUpdated, string, error) {
	str := func(key string) string {
		v, _ := fields[key].(string)
		return v
	}

	var e hook.AfterMotionUpdated
	e.PlenumID = str("plenum")
	e.MotionID = str("motion")
	e.UserID = str("user")
	if e.PlenumID == "" {
		return e, "", fmt.Errorf("event without plenum")
	}
	if g := str("group"); g != "" {
		group, err := strconv.ParseInt(g, 10, 64)
		if err != nil {
			return e, "", fmt.Errorf("bad group %q: %w", g, err)
		}
		e.GroupID = group
	}
	return e, str("instance"), nil
}
