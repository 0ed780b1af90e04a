package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Peer is a deft signaling participant.
type Peer struct {
	ID        string    `json:"id" db:"id"`
	PlenumID  string    `json:"plenumId" db:"plenum_id"`
	MotionID  *string   `json:"motionId,omitempty" db:"motion_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Type      string    `json:"type" db:"type"`
	UUID      string    `json:"uuid" db:"uuid"`
	Mute      bool      `json:"mute" db:"mute"`
	Status    int       `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type PeerRepository interface {
	Create(ctx context.Context, peer *Peer) error
	FindActiveByPlenum(ctx context.Context, plenumID string) ([]*Peer, error)
	FindByUser(ctx context.Context, plenumID, userID string) ([]*Peer, error)
	FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error)
	SetMute(ctx context.Context, id string, mute bool) error
	EndByMotion(ctx context.Context, motionID string) (int64, error)
	EndByUser(ctx context.Context, plenumID, userID string) (int64, error)
	EndStale(ctx context.Context, before time.Time) (int64, error)
	PurgeEnded(ctx context.Context, before time.Time) (int64, error)
	DeleteByUser(ctx context.Context, plenumIDs []string, userID string) error
	DeleteByUsers(ctx context.Context, plenumID string, userIDs []string) error
	DeleteByPlenum(ctx context.Context, plenumID string) error
}

type sqlPeerRepository struct {
	db *sqlx.DB
}

func NewPeerRepository(db *sqlx.DB) PeerRepository {
	return &sqlPeerRepository{db: db}
}

const peerColumns = `id, plenum_id, motion_id, user_id, type, uuid, mute, status, created_at, updated_at`

func (r *sqlPeerRepository) Create(ctx context.Context, peer *Peer) error {
	query := `
		INSERT INTO plenumform_deft_peers (plenum_id, motion_id, user_id, type, uuid, mute, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		peer.PlenumID, peer.MotionID, peer.UserID, peer.Type, peer.UUID, peer.Mute, peer.Status,
	).Scan(&peer.ID, &peer.CreatedAt, &peer.UpdatedAt)
}

func (r *sqlPeerRepository) FindActiveByPlenum(ctx context.Context, plenumID string) ([]*Peer, error) {
	query := `SELECT ` + peerColumns + ` FROM plenumform_deft_peers WHERE plenum_id = $1 AND status = 0 ORDER BY created_at`
	var peers []*Peer
	err := r.db.SelectContext(ctx, &peers, query, plenumID)
	return peers, err
}

func (r *sqlPeerRepository) FindByUser(ctx context.Context, plenumID, userID string) ([]*Peer, error) {
	query := `SELECT ` + peerColumns + ` FROM plenumform_deft_peers WHERE plenum_id = $1 AND user_id = $2 ORDER BY created_at`
	var peers []*Peer
	err := r.db.SelectContext(ctx, &peers, query, plenumID, userID)
	return peers, err
}

func (r *sqlPeerRepository) FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT plenum_id FROM plenumform_deft_peers WHERE user_id = $1`, userID)
	return ids, err
}

func (r *sqlPeerRepository) SetMute(ctx context.Context, id string, mute bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE plenumform_deft_peers SET mute = $2, updated_at = NOW() WHERE id = $1`, id, mute)
	return err
}

func (r *sqlPeerRepository) EndByMotion(ctx context.Context, motionID string) (int64, error) {
	query := `UPDATE plenumform_deft_peers SET status = 1, updated_at = NOW() WHERE motion_id = $1 AND status = 0`
	return rowsAffected(r.db.ExecContext(ctx, query, motionID))
}

func (r *sqlPeerRepository) EndByUser(ctx context.Context, plenumID, userID string) (int64, error) {
	query := `UPDATE plenumform_deft_peers SET status = 1, updated_at = NOW() WHERE plenum_id = $1 AND user_id = $2 AND status = 0`
	return rowsAffected(r.db.ExecContext(ctx, query, plenumID, userID))
}

func (r *sqlPeerRepository) EndStale(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE plenumform_deft_peers SET status = 1, updated_at = NOW() WHERE status = 0 AND updated_at < $1`
	return rowsAffected(r.db.ExecContext(ctx, query, before))
}

func (r *sqlPeerRepository) PurgeEnded(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM plenumform_deft_peers WHERE status = 1 AND updated_at < $1`
	return rowsAffected(r.db.ExecContext(ctx, query, before))
}

func (r *sqlPeerRepository) DeleteByUser(ctx context.Context, plenumIDs []string, userID string) error {
	if len(plenumIDs) == 0 {
		return nil
	}
	return execIn(ctx, r.db,
		`DELETE FROM plenumform_deft_peers WHERE user_id = ? AND plenum_id IN (?)`,
		userID, plenumIDs)
}

func (r *sqlPeerRepository) DeleteByUsers(ctx context.Context, plenumID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return execIn(ctx, r.db,
		`DELETE FROM plenumform_deft_peers WHERE plenum_id = ? AND user_id IN (?)`,
		plenumID, userIDs)
}

func (r *sqlPeerRepository) DeleteByPlenum(ctx context.Context, plenumID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM plenumform_deft_peers WHERE plenum_id = $1`, plenumID)
	return err
}
