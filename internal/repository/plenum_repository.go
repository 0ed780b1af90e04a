package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Plenum is one meeting activity instance inside a course.
type Plenum struct {
	ID                string                 `json:"id"`
	CourseID          string                 `json:"courseId"`
	Name              string                 `json:"name"`
	Intro             string                 `json:"intro"`
	Form              string                 `json:"form"`
	Grade             decimal.Decimal        `json:"grade"`
	GroupMode         int                    `json:"groupMode"`
	CompletionMotions int                    `json:"completionMotions"`
	FormOptions       map[string]interface{} `json:"formOptions,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

type PlenumRepository interface {
	Create(ctx context.Context, plenum *Plenum) error
	FindByID(ctx context.Context, id string) (*Plenum, error)
	FindByCourse(ctx context.Context, courseID string) ([]*Plenum, error)
	Update(ctx context.Context, plenum *Plenum) error
	Delete(ctx context.Context, id string) error
}

type pgPlenumRepository struct {
	pool *pgxpool.Pool
}

func NewPlenumRepository(pool *pgxpool.Pool) PlenumRepository {
	return &pgPlenumRepository{pool: pool}
}

const plenumColumns = `id, course_id, name, intro, form, grade::text, group_mode, completion_motions, form_options, created_at, updated_at`

func scanPlenum(row pgx.Row) (*Plenum, error) {
	p := &Plenum{}
	var grade string
	err := row.Scan(&p.ID, &p.CourseID, &p.Name, &p.Intro, &p.Form, &grade,
		&p.GroupMode, &p.CompletionMotions, &p.FormOptions, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Grade, err = decimal.NewFromString(grade); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgPlenumRepository) Create(ctx context.Context, plenum *Plenum) error {
	if plenum.FormOptions == nil {
		plenum.FormOptions = map[string]interface{}{}
	}
	query := `
		INSERT INTO plenums (course_id, name, intro, form, grade, group_mode, completion_motions, form_options)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query,
		plenum.CourseID, plenum.Name, plenum.Intro, plenum.Form, plenum.Grade.String(),
		plenum.GroupMode, plenum.CompletionMotions, plenum.FormOptions,
	).Scan(&plenum.ID, &plenum.CreatedAt, &plenum.UpdatedAt)
}

func (r *pgPlenumRepository) FindByID(ctx context.Context, id string) (*Plenum, error) {
	if !IsID(id) {
		return nil, nil
	}
	query := `SELECT ` + plenumColumns + ` FROM plenums WHERE id = $1`
	p, err := scanPlenum(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgPlenumRepository) FindByCourse(ctx context.Context, courseID string) ([]*Plenum, error) {
	query := `SELECT ` + plenumColumns + ` FROM plenums WHERE course_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plenums []*Plenum
	for rows.Next() {
		p, err := scanPlenum(rows)
		if err != nil {
			return nil, err
		}
		plenums = append(plenums, p)
	}
	return plenums, rows.Err()
}

func (r *pgPlenumRepository) Update(ctx context.Context, plenum *Plenum) error {
	query := `
		UPDATE plenums
		SET name = $2, intro = $3, form = $4, grade = $5::numeric, group_mode = $6,
		    completion_motions = $7, form_options = $8, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		plenum.ID, plenum.Name, plenum.Intro, plenum.Form, plenum.Grade.String(),
		plenum.GroupMode, plenum.CompletionMotions, plenum.FormOptions,
	)
	return err
}

func (r *pgPlenumRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM plenums WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
