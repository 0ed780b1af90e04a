// internal/socket/broadcaster.go
package socket

import (
	"context"

	"github.com/Marga-Ghale/plenum-backend/internal/hook"
)

// Broadcaster provides methods to broadcast plenum events
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// ============================================
// Motion Events
// ============================================

// BroadcastMotionUpdated tells everyone watching the plenum to refresh the
// motion list of the group.
func (b *Broadcaster) BroadcastMotionUpdated(plenumID string, groupID int64, motionID, userID string) {
	b.hub.SendToRoom(PlenumRoom(plenumID), MessageMotionUpdated, map[string]interface{}{
		"plenumId": plenumID,
		"groupId":  groupID,
		"motionId": motionID,
		"userId":   userID,
	}, "")
}

// OnMotionUpdated is the hook listener form of BroadcastMotionUpdated.
func (b *Broadcaster) OnMotionUpdated(_ context.Context, e hook.AfterMotionUpdated) error {
	b.BroadcastMotionUpdated(e.PlenumID, e.GroupID, e.MotionID, e.UserID)
	return nil
}

// BroadcastFloorChanged announces the new floor holder of a group. floor is
// nil when nothing is pending.
func (b *Broadcaster) BroadcastFloorChanged(plenumID string, groupID int64, floor map[string]interface{}) {
	b.hub.SendToRoom(PlenumRoom(plenumID), MessageFloorChanged, map[string]interface{}{
		"plenumId": plenumID,
		"groupId":  groupID,
		"floor":    floor,
	}, "")
}

// ============================================
// Meeting Form Events
// ============================================

func (b *Broadcaster) BroadcastHandRaised(plenumID string, groupID int64, userID string, raised bool) {
	b.hub.SendToRoom(PlenumRoom(plenumID), MessageHandRaised, map[string]interface{}{
		"plenumId": plenumID,
		"groupId":  groupID,
		"userId":   userID,
		"raised":   raised,
	}, "")
}

func (b *Broadcaster) BroadcastPeer(plenumID string, joined bool, peer map[string]interface{}, excludeUserID string) {
	msgType := MessagePeerLeft
	if joined {
		msgType = MessagePeerJoined
	}
	b.hub.SendToRoom(PlenumRoom(plenumID), msgType, peer, excludeUserID)
}

// SendSignal relays a signaling payload to one user.
func (b *Broadcaster) SendSignal(toUserID string, payload map[string]interface{}) {
	b.hub.SendToUser(toUserID, MessageSignal, payload)
}

// SendToUsers sends a message to multiple users
func (b *Broadcaster) SendToUsers(userIDs []string, msgType MessageType, payload map[string]interface{}) {
	for _, userID := range userIDs {
		b.hub.SendToUser(userID, msgType, payload)
	}
}
