// Package hook dispatches motion lifecycle events to the listeners registered
// at startup (sockets, relay, meeting forms, cache).
package hook

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// AfterMotionUpdated is fired once per committed motion change.
type AfterMotionUpdated struct {
	PlenumID string `json:"plenumId"`
	GroupID  int64  `json:"groupId"`
	MotionID string `json:"motionId"`
	UserID   string `json:"userId"`
}

// BeforeMotionDeleted is fired before a motion row is removed.
type BeforeMotionDeleted struct {
	PlenumID string `json:"plenumId"`
	MotionID string `json:"motionId"`
}

type AfterMotionUpdatedFunc func(ctx context.Context, event AfterMotionUpdated) error
type BeforeMotionDeletedFunc func(ctx context.Context, event BeforeMotionDeleted) error

type namedUpdated struct {
	name string
	fn   AfterMotionUpdatedFunc
}

type namedDeleted struct {
	name string
	fn   BeforeMotionDeletedFunc
}

type Dispatcher struct {
	mu      sync.RWMutex
	updated []namedUpdated
	deleted []namedDeleted
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) OnAfterMotionUpdated(name string, fn AfterMotionUpdatedFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updated = append(d.updated, namedUpdated{name: name, fn: fn})
}

func (d *Dispatcher) OnBeforeMotionDeleted(name string, fn BeforeMotionDeletedFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, namedDeleted{name: name, fn: fn})
}

// MotionUpdated runs every listener in registration order. Listener failures
// are logged and never returned to the caller.
func (d *Dispatcher) MotionUpdated(ctx context.Context, event AfterMotionUpdated) {
	if d == nil {
		return
	}
	d.mu.RLock()
	listeners := append([]namedUpdated(nil), d.updated...)
	d.mu.RUnlock()

	for _, l := range listeners {
		if err := safeCall(func() error { return l.fn(ctx, event) }); err != nil {
			zap.L().Warn("[Hook] after_motion_updated listener failed",
				zap.String("listener", l.name),
				zap.String("plenum", event.PlenumID),
				zap.String("motion", event.MotionID),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) MotionDeleting(ctx context.Context, event BeforeMotionDeleted) {
	if d == nil {
		return
	}
	d.mu.RLock()
	listeners := append([]namedDeleted(nil), d.deleted...)
	d.mu.RUnlock()

	for _, l := range listeners {
		if err := safeCall(func() error { return l.fn(ctx, event) }); err != nil {
			zap.L().Warn("[Hook] before_motion_deleted listener failed",
				zap.String("listener", l.name),
				zap.String("motion", event.MotionID),
				zap.Error(err))
		}
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("[Hook] listener panic", zap.Any("panic", r))
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return fn()
}
