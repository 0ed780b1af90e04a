package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Grade is a numeric grade for one user in one plenum grade item.
type Grade struct {
	ID         string              `json:"id"`
	PlenumID   string              `json:"plenumId"`
	UserID     string              `json:"userId"`
	ItemNumber int                 `json:"itemNumber"`
	Grade      decimal.NullDecimal `json:"grade"`
	Grader     string              `json:"grader"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

type GradeRepository interface {
	Create(ctx context.Context, grade *Grade) error
	Upsert(ctx context.Context, grade *Grade) error
	Find(ctx context.Context, plenumID, userID string, itemNumber int) (*Grade, error)
	FindByPlenum(ctx context.Context, plenumID string) ([]*Grade, error)
	FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error)
	DeleteByUser(ctx context.Context, plenumIDs []string, userID string) error
	DeleteByUsers(ctx context.Context, plenumID string, userIDs []string) error
	DeleteByPlenum(ctx context.Context, plenumID string) error
}

type pgGradeRepository struct {
	pool *pgxpool.Pool
}

func NewGradeRepository(pool *pgxpool.Pool) GradeRepository {
	return &pgGradeRepository{pool: pool}
}

func nullDecimalArg(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func scanGrade(row pgx.Row) (*Grade, error) {
	g := &Grade{}
	var value *string
	if err := row.Scan(&g.ID, &g.PlenumID, &g.UserID, &g.ItemNumber, &value, &g.Grader, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if value != nil {
		d, err := decimal.NewFromString(*value)
		if err != nil {
			return nil, err
		}
		g.Grade = decimal.NewNullDecimal(d)
	}
	return g, nil
}

func (r *pgGradeRepository) Create(ctx context.Context, grade *Grade) error {
	query := `
		INSERT INTO plenum_grades (plenum_id, user_id, item_number, grade, grader)
		VALUES ($1, $2, $3, $4::numeric, $5)
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		grade.PlenumID, grade.UserID, grade.ItemNumber, nullDecimalArg(grade.Grade), grade.Grader,
	).Scan(&grade.ID, &grade.CreatedAt, &grade.UpdatedAt)
}

func (r *pgGradeRepository) Upsert(ctx context.Context, grade *Grade) error {
	query := `
		INSERT INTO plenum_grades (plenum_id, user_id, item_number, grade, grader)
		VALUES ($1, $2, $3, $4::numeric, $5)
		ON CONFLICT (plenum_id, user_id, item_number) DO UPDATE
		SET grade = EXCLUDED.grade, grader = EXCLUDED.grader, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		grade.PlenumID, grade.UserID, grade.ItemNumber, nullDecimalArg(grade.Grade), grade.Grader,
	).Scan(&grade.ID, &grade.CreatedAt, &grade.UpdatedAt)
}

func (r *pgGradeRepository) Find(ctx context.Context, plenumID, userID string, itemNumber int) (*Grade, error) {
	query := `
		SELECT id, plenum_id, user_id, item_number, grade::text, grader, created_at, updated_at
		FROM plenum_grades
		WHERE plenum_id = $1 AND user_id = $2 AND item_number = $3
	`
	g, err := scanGrade(r.pool.QueryRow(ctx, query, plenumID, userID, itemNumber))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *pgGradeRepository) FindByPlenum(ctx context.Context, plenumID string) ([]*Grade, error) {
	query := `
		SELECT id, plenum_id, user_id, item_number, grade::text, grader, created_at, updated_at
		FROM plenum_grades
		WHERE plenum_id = $1
		ORDER BY user_id, item_number
	`
	rows, err := r.pool.Query(ctx, query, plenumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []*Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

func (r *pgGradeRepository) FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT DISTINCT plenum_id FROM plenum_grades WHERE user_id = $1`
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

func (r *pgGradeRepository) DeleteByUser(ctx context.Context, plenumIDs []string, userID string) error {
	query := `DELETE FROM plenum_grades WHERE plenum_id = ANY($1) AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, plenumIDs, userID)
	return err
}

func (r *pgGradeRepository) DeleteByUsers(ctx context.Context, plenumID string, userIDs []string) error {
	query := `DELETE FROM plenum_grades WHERE plenum_id = $1 AND user_id = ANY($2)`
	_, err := r.pool.Exec(ctx, query, plenumID, userIDs)
	return err
}

func (r *pgGradeRepository) DeleteByPlenum(ctx context.Context, plenumID string) error {
	query := `DELETE FROM plenum_grades WHERE plenum_id = $1`
	_, err := r.pool.Exec(ctx, query, plenumID)
	return err
}
