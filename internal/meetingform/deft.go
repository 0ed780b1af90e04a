package meetingform

import (
	"context"
	"fmt"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/Marga-Ghale/plenum-backend/internal/socket"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================
// Deft
// ============================================

// Deft connects participants peer to peer and signals through the
// websocket hub. Each browser session is a peer row.
type Deft struct {
	deps  *Deps
	peers repository.PeerRepository
}

func NewDeft(deps *Deps, peers repository.PeerRepository) *Deft {
	return &Deft{deps: deps, peers: peers}
}

func (d *Deft) Name() string { return types.FormDeft }

func (d *Deft) Content(ctx context.Context, scope *Scope) (map[string]interface{}, error) {
	cfg := d.deps.config(ctx, types.FormDeft)

	token, err := d.issueToken(scope.UserID, scope.Plenum.ID)
	if err != nil {
		return nil, err
	}
	peers, err := d.peers.FindActiveByPlenum(ctx, scope.Plenum.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load peers: %w", err)
	}

	hasFloor := scope.Immediate != nil && scope.Immediate.UserCreated == scope.UserID
	perm := d.deps.Permissions
	canShare := scope.Immediate != nil &&
		perm.HasCapability(ctx, scope.UserID, scope.Plenum.ID, types.CapMeet) &&
		perm.HasCapability(ctx, scope.UserID, scope.Plenum.ID, types.CapShareVideo) &&
		(scope.Chair || hasFloor)

	return map[string]interface{}{
		"token":      token,
		"throttle":   atoiOr(cfg["throttle"], 100),
		"peers":      peers,
		"floor":      d.floor(ctx, scope.Immediate),
		"sharevideo": canShare,
		"viewvideo":  perm.HasCapability(ctx, scope.UserID, scope.Plenum.ID, types.CapViewVideo),
	}, nil
}

func (d *Deft) issueToken(userID, plenumID string) (string, error) {
	if d.deps.Tokens == nil {
		return "", fmt.Errorf("no token issuer configured")
	}
	token, err := d.deps.Tokens.IssueToken(userID, d.deps.SocketTokenTTL, map[string]interface{}{
		"plenum": plenumID,
		"scope":  "deft",
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue socket token: %w", err)
	}
	return token, nil
}

// RenewToken issues a fresh socket token before the current one expires.
func (d *Deft) RenewToken(ctx context.Context, userID, plenumID string) (string, error) {
	if _, err := d.deps.scope(ctx, userID, plenumID, 0, types.CapView); err != nil {
		return "", err
	}
	return d.issueToken(userID, plenumID)
}

// Join replaces the caller's previous peers with a new one.
func (d *Deft) Join(ctx context.Context, userID, plenumID string, groupID int64) (*repository.Peer, error) {
	scope, err := d.deps.scope(ctx, userID, plenumID, groupID, types.CapView)
	if err != nil {
		return nil, err
	}
	if err := d.deps.Permissions.Require(ctx, userID, plenumID, types.CapViewVideo); err != nil {
		return nil, err
	}

	if _, err := d.peers.EndByUser(ctx, plenumID, userID); err != nil {
		return nil, fmt.Errorf("failed to end previous peers: %w", err)
	}

	peer := &repository.Peer{
		PlenumID: plenumID,
		UserID:   userID,
		Type:     "venue",
		UUID:     uuid.New().String(),
		Mute:     true,
		Status:   types.ConnectionActive,
	}
	if scope.Immediate != nil {
		peer.MotionID = &scope.Immediate.ID
	}
	if err := d.peers.Create(ctx, peer); err != nil {
		return nil, fmt.Errorf("failed to create peer: %w", err)
	}

	d.notifyPeer(plenumID, true, peer)
	zap.L().Info("[Deft] Peer joined", zap.String("plenum", plenumID), zap.String("user", userID), zap.String("peer", peer.UUID))
	return peer, nil
}

// Leave ends the caller's peers.
func (d *Deft) Leave(ctx context.Context, userID, plenumID string) error {
	peers, err := d.activePeers(ctx, plenumID, userID)
	if err != nil {
		return err
	}
	if _, err := d.peers.EndByUser(ctx, plenumID, userID); err != nil {
		return fmt.Errorf("failed to end peers: %w", err)
	}
	for _, p := range peers {
		d.notifyPeer(plenumID, false, p)
	}
	return nil
}

// Mute sets the mute flag of the caller's active peers.
func (d *Deft) Mute(ctx context.Context, userID, plenumID string, mute bool) error {
	if _, err := d.deps.scope(ctx, userID, plenumID, 0, types.CapView); err != nil {
		return err
	}
	peers, err := d.activePeers(ctx, plenumID, userID)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		return fmt.Errorf("%w: not connected", service.ErrInvalidState)
	}
	for _, p := range peers {
		if err := d.peers.SetMute(ctx, p.ID, mute); err != nil {
			return fmt.Errorf("failed to update peer: %w", err)
		}
	}
	return nil
}

// Peers lists the active peers of a plenum.
func (d *Deft) Peers(ctx context.Context, userID, plenumID string) ([]*repository.Peer, error) {
	if _, err := d.deps.scope(ctx, userID, plenumID, 0, types.CapView); err != nil {
		return nil, err
	}
	peers, err := d.peers.FindActiveByPlenum(ctx, plenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load peers: %w", err)
	}
	return peers, nil
}

func (d *Deft) activePeers(ctx context.Context, plenumID, userID string) ([]*repository.Peer, error) {
	peers, err := d.peers.FindByUser(ctx, plenumID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load peers: %w", err)
	}
	active := peers[:0]
	for _, p := range peers {
		if p.Status == types.ConnectionActive {
			active = append(active, p)
		}
	}
	return active, nil
}

func (d *Deft) notifyPeer(plenumID string, joined bool, p *repository.Peer) {
	if d.deps.Notifier == nil {
		return
	}
	d.deps.Notifier.BroadcastPeer(plenumID, joined, map[string]interface{}{
		"plenumId": plenumID,
		"peer":     p.UUID,
		"userId":   p.UserID,
	}, p.UserID)
}

// HandleSignal relays a signaling message between two active peers of the
// same plenum. It is registered on the hub for the "signal" action.
func (d *Deft) HandleSignal(c *socket.Client, msg socket.ClientMessage) error {
	plenumID, _ := msg.Payload["plenumId"].(string)
	to, _ := msg.Payload["to"].(string)
	if plenumID == "" || to == "" {
		return fmt.Errorf("signal needs plenumId and to")
	}
	if !c.InRoom(socket.PlenumRoom(plenumID)) {
		return fmt.Errorf("join the plenum before signaling")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	peers, err := d.peers.FindActiveByPlenum(ctx, plenumID)
	if err != nil {
		zap.L().Warn("[Deft] Failed to load peers", zap.String("plenum", plenumID), zap.Error(err))
		return fmt.Errorf("signal failed")
	}

	var from, target *repository.Peer
	for _, p := range peers {
		if p.UserID == c.UserID && from == nil {
			from = p
		}
		if p.UUID == to {
			target = p
		}
	}
	if from == nil {
		return fmt.Errorf("no active peer")
	}
	if target == nil {
		return fmt.Errorf("peer not found")
	}

	if d.deps.Notifier != nil {
		d.deps.Notifier.SendSignal(target.UserID, map[string]interface{}{
			"plenumId": plenumID,
			"from":     from.UUID,
			"to":       target.UUID,
			"signal":   msg.Payload["signal"],
		})
	}
	return nil
}

// floor describes the floor holder for clients; nil when nothing is pending.
func (d *Deft) floor(ctx context.Context, immediate *repository.Motion) map[string]interface{} {
	if immediate == nil {
		return nil
	}
	return map[string]interface{}{
		"motionId": immediate.ID,
		"type":     immediate.Type,
		"userId":   immediate.UserCreated,
		"name":     d.deps.userName(ctx, immediate.UserCreated),
	}
}

// OnMotionUpdated pushes the new floor holder. It only broadcasts, so it is
// also safe to run for updates relayed from other instances.
func (d *Deft) OnMotionUpdated(ctx context.Context, e hook.AfterMotionUpdated) error {
	if d.deps.Notifier == nil {
		return nil
	}
	immediate, err := d.deps.immediate(ctx, e.PlenumID, e.GroupID)
	if err != nil {
		return err
	}
	d.deps.Notifier.BroadcastFloorChanged(e.PlenumID, e.GroupID, d.floor(ctx, immediate))
	return nil
}

// OnMotionDeleting ends the peers attached to a motion that is going away.
func (d *Deft) OnMotionDeleting(ctx context.Context, e hook.BeforeMotionDeleted) error {
	if _, err := d.peers.EndByMotion(ctx, e.MotionID); err != nil {
		return fmt.Errorf("failed to end peers: %w", err)
	}
	return nil
}

// Register wires the form's hook listeners.
func (d *Deft) Register(disp *hook.Dispatcher) {
	disp.OnAfterMotionUpdated("deft.floor", d.OnMotionUpdated)
	disp.OnBeforeMotionDeleted("deft.peers", d.OnMotionDeleting)
}

func (d *Deft) PrivacyProvider() service.PrivacyProvider {
	return &connectionProvider[*repository.Peer]{name: "plenumform_deft", store: d.peers}
}
