package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// Speaker is a published video feed in a jitsi2 meeting.
type Speaker struct {
	ID          string    `json:"id" db:"id"`
	PlenumID    string    `json:"plenumId" db:"plenum_id"`
	MotionID    string    `json:"motionId" db:"motion_id"`
	UserID      string    `json:"userId" db:"user_id"`
	JitsiUserID string    `json:"jitsiUserId" db:"jitsi_user_id"`
	Role        int       `json:"role" db:"role"`
	Status      int       `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type SpeakerRepository interface {
	Create(ctx context.Context, speaker *Speaker) error
	FindActiveByGroup(ctx context.Context, plenumID string, groupID int64) ([]*Speaker, error)
	FindActiveByUser(ctx context.Context, plenumID string, groupID int64, userID string) (*Speaker, error)
	FindByUser(ctx context.Context, plenumID, userID string) ([]*Speaker, error)
	FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error)
	EndActiveByUser(ctx context.Context, plenumID, userID string) (int64, error)
	EndActiveByGroup(ctx context.Context, plenumID string, groupID int64) (int64, error)
	EndOthers(ctx context.Context, plenumID string, groupID int64, keepUserID string) (int64, error)
	EndStale(ctx context.Context, before time.Time) (int64, error)
	PurgeEnded(ctx context.Context, before time.Time) (int64, error)
	DeleteByUser(ctx context.Context, plenumIDs []string, userID string) error
	DeleteByUsers(ctx context.Context, plenumID string, userIDs []string) error
	DeleteByPlenum(ctx context.Context, plenumID string) error
}

type sqlSpeakerRepository struct {
	db *sqlx.DB
}

func NewSpeakerRepository(db *sqlx.DB) SpeakerRepository {
	return &sqlSpeakerRepository{db: db}
}

const speakerColumns = `s.id, s.plenum_id, s.motion_id, s.user_id, s.jitsi_user_id, s.role, s.status, s.created_at, s.updated_at`

func (r *sqlSpeakerRepository) Create(ctx context.Context, speaker *Speaker) error {
	query := `
		INSERT INTO plenumform_jitsi2_speakers (plenum_id, motion_id, user_id, jitsi_user_id, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		speaker.PlenumID, speaker.MotionID, speaker.UserID, speaker.JitsiUserID, speaker.Role, speaker.Status,
	).Scan(&speaker.ID, &speaker.CreatedAt, &speaker.UpdatedAt)
}

func (r *sqlSpeakerRepository) FindActiveByGroup(ctx context.Context, plenumID string, groupID int64) ([]*Speaker, error) {
	query := `
		SELECT ` + speakerColumns + `
		FROM plenumform_jitsi2_speakers s
		JOIN plenum_motions m ON m.id = s.motion_id
		WHERE s.plenum_id = $1 AND m.group_id = $2 AND s.status = 0
		ORDER BY s.created_at
	`
	var speakers []*Speaker
	err := r.db.SelectContext(ctx, &speakers, query, plenumID, groupID)
	return speakers, err
}

func (r *sqlSpeakerRepository) FindActiveByUser(ctx context.Context, plenumID string, groupID int64, userID string) (*Speaker, error) {
	query := `
		SELECT ` + speakerColumns + `
		FROM plenumform_jitsi2_speakers s
		JOIN plenum_motions m ON m.id = s.motion_id
		WHERE s.plenum_id = $1 AND m.group_id = $2 AND s.user_id = $3 AND s.status = 0
		ORDER BY s.created_at DESC
		LIMIT 1
	`
	speaker := &Speaker{}
	err := r.db.GetContext(ctx, speaker, query, plenumID, groupID, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return speaker, nil
}

func (r *sqlSpeakerRepository) FindByUser(ctx context.Context, plenumID, userID string) ([]*Speaker, error) {
	query := `
		SELECT ` + speakerColumns + `
		FROM plenumform_jitsi2_speakers s
		WHERE s.plenum_id = $1 AND s.user_id = $2
		ORDER BY s.created_at
	`
	var speakers []*Speaker
	err := r.db.SelectContext(ctx, &speakers, query, plenumID, userID)
	return speakers, err
}

func (r *sqlSpeakerRepository) FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT plenum_id FROM plenumform_jitsi2_speakers WHERE user_id = $1`, userID)
	return ids, err
}

func (r *sqlSpeakerRepository) EndActiveByUser(ctx context.Context, plenumID, userID string) (int64, error) {
	query := `
		UPDATE plenumform_jitsi2_speakers
		SET status = 1, updated_at = NOW()
		WHERE plenum_id = $1 AND user_id = $2 AND status = 0
	`
	return rowsAffected(r.db.ExecContext(ctx, query, plenumID, userID))
}

func (r *sqlSpeakerRepository) EndActiveByGroup(ctx context.Context, plenumID string, groupID int64) (int64, error) {
	query := `
		UPDATE plenumform_jitsi2_speakers s
		SET status = 1, updated_at = NOW()
		FROM plenum_motions m
		WHERE m.id = s.motion_id AND s.plenum_id = $1 AND m.group_id = $2 AND s.status = 0
	`
	return rowsAffected(r.db.ExecContext(ctx, query, plenumID, groupID))
}

// EndOthers ends active speakers of the group except chairs and keepUserID.
func (r *sqlSpeakerRepository) EndOthers(ctx context.Context, plenumID string, groupID int64, keepUserID string) (int64, error) {
	query := `
		UPDATE plenumform_jitsi2_speakers s
		SET status = 1, updated_at = NOW()
		FROM plenum_motions m
		WHERE m.id = s.motion_id AND s.plenum_id = $1 AND m.group_id = $2
		  AND s.status = 0 AND s.role = 0 AND s.user_id <> $3
	`
	return rowsAffected(r.db.ExecContext(ctx, query, plenumID, groupID, keepUserID))
}

func (r *sqlSpeakerRepository) EndStale(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE plenumform_jitsi2_speakers SET status = 1, updated_at = NOW() WHERE status = 0 AND updated_at < $1`
	return rowsAffected(r.db.ExecContext(ctx, query, before))
}

func (r *sqlSpeakerRepository) PurgeEnded(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM plenumform_jitsi2_speakers WHERE status = 1 AND updated_at < $1`
	return rowsAffected(r.db.ExecContext(ctx, query, before))
}

func (r *sqlSpeakerRepository) DeleteByUser(ctx context.Context, plenumIDs []string, userID string) error {
	if len(plenumIDs) == 0 {
		return nil
	}
	return execIn(ctx, r.db,
		`DELETE FROM plenumform_jitsi2_speakers WHERE user_id = ? AND plenum_id IN (?)`,
		userID, plenumIDs)
}

func (r *sqlSpeakerRepository) DeleteByUsers(ctx context.Context, plenumID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return execIn(ctx, r.db,
		`DELETE FROM plenumform_jitsi2_speakers WHERE plenum_id = ? AND user_id IN (?)`,
		plenumID, userIDs)
}

func (r *sqlSpeakerRepository) DeleteByPlenum(ctx context.Context, plenumID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM plenumform_jitsi2_speakers WHERE plenum_id = $1`, plenumID)
	return err
}

// execIn expands slice arguments with sqlx.In and rebinds for postgres.
func execIn(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) error {
	q, params, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(q), params...)
	return err
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
