package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Motion struct {
	ID           string                 `json:"id" db:"id"`
	PlenumID     string                 `json:"plenumId" db:"plenum_id"`
	GroupID      int64                  `json:"groupId" db:"group_id"`
	Type         string                 `json:"type" db:"type"`
	Status       string                 `json:"status" db:"status"`
	ParentID     *string                `json:"parentId,omitempty" db:"parent_id"`
	UserCreated  string                 `json:"userCreated" db:"user_created"`
	UserModified string                 `json:"userModified" db:"user_modified"`
	Data         map[string]interface{} `json:"data,omitempty" db:"-"`
	CreatedAt    time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time              `json:"updatedAt" db:"updated_at"`
}

// ErrStaleStatus is returned when a motion changed status between read and write.
var ErrStaleStatus = errors.New("stale motion status")

// StatusChange is one status update applied by a transition.
type StatusChange struct {
	MotionID string
	From     string
	To       string
}

type MotionRepository interface {
	Create(ctx context.Context, motion *Motion) error
	Import(ctx context.Context, motion *Motion) error
	FindByID(ctx context.Context, id string) (*Motion, error)
	FindByScope(ctx context.Context, plenumID string, groupID int64) ([]*Motion, error)
	FindPending(ctx context.Context, plenumID string, groupID int64) ([]*Motion, error)
	FindByPlenum(ctx context.Context, plenumID string) ([]*Motion, error)
	FindByUser(ctx context.Context, plenumID, userID string) ([]*Motion, error)
	FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error)
	FindUserIDsByPlenum(ctx context.Context, plenumID string) ([]string, error)
	CountByUser(ctx context.Context, plenumID, userID string) (int, error)
	CountByType(ctx context.Context, plenumID, motionType string) (int, error)
	ApplyChanges(ctx context.Context, changes []StatusChange, userID string) error
	Submit(ctx context.Context, id, status string, parentID *string) error
	Delete(ctx context.Context, id string) error
	DeleteDraftsByUser(ctx context.Context, plenumIDs []string, userID string) ([]string, error)
	AnonymizeUser(ctx context.Context, plenumIDs []string, userID, anonymousID string) (int64, error)
	DeleteByPlenum(ctx context.Context, plenumID string) error
}

type pgMotionRepository struct {
	pool *pgxpool.Pool
}

func NewMotionRepository(pool *pgxpool.Pool) MotionRepository {
	return &pgMotionRepository{pool: pool}
}

const motionColumns = `id, plenum_id, group_id, type, status, parent_id, user_created, user_modified, data, created_at, updated_at`

func scanMotion(row pgx.Row) (*Motion, error) {
	m := &Motion{}
	err := row.Scan(&m.ID, &m.PlenumID, &m.GroupID, &m.Type, &m.Status, &m.ParentID,
		&m.UserCreated, &m.UserModified, &m.Data, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func collectMotions(rows pgx.Rows) ([]*Motion, error) {
	defer rows.Close()

	var motions []*Motion
	for rows.Next() {
		m, err := scanMotion(rows)
		if err != nil {
			return nil, err
		}
		motions = append(motions, m)
	}
	return motions, rows.Err()
}

func (r *pgMotionRepository) Create(ctx context.Context, motion *Motion) error {
	if motion.Data == nil {
		motion.Data = map[string]interface{}{}
	}
	query := `
		INSERT INTO plenum_motions (plenum_id, group_id, type, status, parent_id, user_created, user_modified, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		motion.PlenumID, motion.GroupID, motion.Type, motion.Status, motion.ParentID,
		motion.UserCreated, motion.UserModified, motion.Data,
	).Scan(&motion.ID, &motion.CreatedAt, &motion.UpdatedAt)
}

// Import inserts a restored motion keeping its status and timestamps.
func (r *pgMotionRepository) Import(ctx context.Context, motion *Motion) error {
	if motion.Data == nil {
		motion.Data = map[string]interface{}{}
	}
	query := `
		INSERT INTO plenum_motions (plenum_id, group_id, type, status, parent_id, user_created, user_modified, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return r.pool.QueryRow(ctx, query,
		motion.PlenumID, motion.GroupID, motion.Type, motion.Status, motion.ParentID,
		motion.UserCreated, motion.UserModified, motion.Data, motion.CreatedAt, motion.UpdatedAt,
	).Scan(&motion.ID)
}

func (r *pgMotionRepository) FindByID(ctx context.Context, id string) (*Motion, error) {
	if !IsID(id) {
		return nil, nil
	}
	query := `SELECT ` + motionColumns + ` FROM plenum_motions WHERE id = $1`
	m, err := scanMotion(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FindByScope returns every non-draft motion of a plenum and group.
func (r *pgMotionRepository) FindByScope(ctx context.Context, plenumID string, groupID int64) ([]*Motion, error) {
	query := `
		SELECT ` + motionColumns + `
		FROM plenum_motions
		WHERE plenum_id = $1 AND group_id = $2 AND status <> 'draft'
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, plenumID, groupID)
	if err != nil {
		return nil, err
	}
	return collectMotions(rows)
}

func (r *pgMotionRepository) FindPending(ctx context.Context, plenumID string, groupID int64) ([]*Motion, error) {
	query := `
		SELECT ` + motionColumns + `
		FROM plenum_motions
		WHERE plenum_id = $1 AND group_id = $2 AND status = 'pending'
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, plenumID, groupID)
	if err != nil {
		return nil, err
	}
	return collectMotions(rows)
}

// FindByPlenum returns all motions of a plenum including drafts.
func (r *pgMotionRepository) FindByPlenum(ctx context.Context, plenumID string) ([]*Motion, error) {
	query := `SELECT ` + motionColumns + ` FROM plenum_motions WHERE plenum_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, plenumID)
	if err != nil {
		return nil, err
	}
	return collectMotions(rows)
}

func (r *pgMotionRepository) FindByUser(ctx context.Context, plenumID, userID string) ([]*Motion, error) {
	query := `
		SELECT ` + motionColumns + `
		FROM plenum_motions
		WHERE plenum_id = $1 AND user_created = $2
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, plenumID, userID)
	if err != nil {
		return nil, err
	}
	return collectMotions(rows)
}

func (r *pgMotionRepository) FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT DISTINCT plenum_id FROM plenum_motions WHERE user_created = $1`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgMotionRepository) FindUserIDsByPlenum(ctx context.Context, plenumID string) ([]string, error) {
	query := `SELECT DISTINCT user_created FROM plenum_motions WHERE plenum_id = $1`
	rows, err := r.pool.Query(ctx, query, plenumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgMotionRepository) CountByUser(ctx context.Context, plenumID, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM plenum_motions WHERE plenum_id = $1 AND user_created = $2 AND status <> 'draft'`
	var count int
	err := r.pool.QueryRow(ctx, query, plenumID, userID).Scan(&count)
	return count, err
}

func (r *pgMotionRepository) CountByType(ctx context.Context, plenumID, motionType string) (int, error) {
	query := `SELECT COUNT(*) FROM plenum_motions WHERE plenum_id = $1 AND type = $2 AND status <> 'draft'`
	var count int
	err := r.pool.QueryRow(ctx, query, plenumID, motionType).Scan(&count)
	return count, err
}

// ApplyChanges writes a set of status changes in one transaction. A change whose
// motion is no longer in its From status aborts the whole set.
func (r *pgMotionRepository) ApplyChanges(ctx context.Context, changes []StatusChange, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE plenum_motions
		SET status = $3, user_modified = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	for _, change := range changes {
		tag, err := tx.Exec(ctx, query, change.MotionID, change.From, change.To, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: motion %s is no longer %s", ErrStaleStatus, change.MotionID, change.From)
		}
	}
	return tx.Commit(ctx)
}

// Submit moves a draft out of draft status. The submission time becomes the
// creation time so precedence follows the order motions reached the floor.
func (r *pgMotionRepository) Submit(ctx context.Context, id, status string, parentID *string) error {
	query := `
		UPDATE plenum_motions
		SET status = $2, parent_id = $3, created_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
	`
	tag, err := r.pool.Exec(ctx, query, id, status, parentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: motion %s is no longer a draft", ErrStaleStatus, id)
	}
	return nil
}

func (r *pgMotionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM plenum_motions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *pgMotionRepository) DeleteDraftsByUser(ctx context.Context, plenumIDs []string, userID string) ([]string, error) {
	query := `
		DELETE FROM plenum_motions
		WHERE plenum_id = ANY($1) AND user_created = $2 AND status = 'draft'
		RETURNING id
	`
	rows, err := r.pool.Query(ctx, query, plenumIDs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgMotionRepository) AnonymizeUser(ctx context.Context, plenumIDs []string, userID, anonymousID string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	created, err := tx.Exec(ctx,
		`UPDATE plenum_motions SET user_created = $3 WHERE plenum_id = ANY($1) AND user_created = $2`,
		plenumIDs, userID, anonymousID)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE plenum_motions SET user_modified = $3 WHERE plenum_id = ANY($1) AND user_modified = $2`,
		plenumIDs, userID, anonymousID); err != nil {
		return 0, err
	}
	return created.RowsAffected(), tx.Commit(ctx)
}

func (r *pgMotionRepository) DeleteByPlenum(ctx context.Context, plenumID string) error {
	query := `DELETE FROM plenum_motions WHERE plenum_id = $1`
	_, err := r.pool.Exec(ctx, query, plenumID)
	return err
}
