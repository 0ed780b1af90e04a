package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// MotionReportFilter narrows the motions report. Zero values mean no filter.
type MotionReportFilter struct {
	PlenumID     string
	GroupID      *int64
	UserID       string
	Types        []string
	ParentTypes  []string
	Statuses     []string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	ModifiedFrom *time.Time
	ModifiedTo   *time.Time
	UserName     string
	SortBy       string
	SortDesc     bool
	Page         int
	PerPage      int
}

type MotionReportRow struct {
	ID           string    `json:"id" db:"id"`
	Type         string    `json:"type" db:"type"`
	Status       string    `json:"status" db:"status"`
	ParentType   *string   `json:"parentType,omitempty" db:"parent_type"`
	UserCreated  string    `json:"userCreated" db:"user_created"`
	UserModified string    `json:"userModified" db:"user_modified"`
	UserFullName *string   `json:"userFullName,omitempty" db:"user_fullname"`
	CreatedAt    time.Time `json:"timeCreated" db:"created_at"`
	UpdatedAt    time.Time `json:"timeModified" db:"updated_at"`
	Total        int       `json:"-" db:"total"`
}

// ReportSortColumns maps report column names to SQL expressions.
var ReportSortColumns = map[string]string{
	"type":         "m.type",
	"status":       "m.status",
	"parent":       "p.type",
	"usermodified": "u.name",
	"timecreated":  "m.created_at",
	"timemodified": "m.updated_at",
}

const DefaultReportPerPage = 30

type ReportRepository interface {
	Motions(ctx context.Context, filter MotionReportFilter) ([]*MotionReportRow, int, error)
}

type sqlReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) ReportRepository {
	return &sqlReportRepository{db: db}
}

func (r *sqlReportRepository) Motions(ctx context.Context, filter MotionReportFilter) ([]*MotionReportRow, int, error) {
	query, args, err := BuildMotionReportQuery(filter)
	if err != nil {
		return nil, 0, err
	}

	var rows []*MotionReportRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	total := 0
	if len(rows) > 0 {
		total = rows[0].Total
	}
	return rows, total, nil
}

// BuildMotionReportQuery renders the report query with '?' bind variables.
// Drafts are never reported.
func BuildMotionReportQuery(f MotionReportFilter) (string, []interface{}, error) {
	where := []string{"m.plenum_id = ?", "m.status <> 'draft'"}
	args := []interface{}{f.PlenumID}

	if f.GroupID != nil {
		where = append(where, "m.group_id = ?")
		args = append(args, *f.GroupID)
	}
	if f.UserID != "" {
		where = append(where, "m.user_created = ?")
		args = append(args, f.UserID)
	}
	if len(f.Types) > 0 {
		where = append(where, "m.type IN (?)")
		args = append(args, f.Types)
	}
	if len(f.ParentTypes) > 0 {
		where = append(where, "p.type IN (?)")
		args = append(args, f.ParentTypes)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "m.status IN (?)")
		args = append(args, f.Statuses)
	}
	if f.CreatedFrom != nil {
		where = append(where, "m.created_at >= ?")
		args = append(args, *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		where = append(where, "m.created_at <= ?")
		args = append(args, *f.CreatedTo)
	}
	if f.ModifiedFrom != nil {
		where = append(where, "m.updated_at >= ?")
		args = append(args, *f.ModifiedFrom)
	}
	if f.ModifiedTo != nil {
		where = append(where, "m.updated_at <= ?")
		args = append(args, *f.ModifiedTo)
	}
	if f.UserName != "" {
		where = append(where, "LOWER(u.name) LIKE LOWER(?)")
		args = append(args, "%"+f.UserName+"%")
	}

	sortBy := "timemodified"
	if f.SortBy != "" {
		sortBy = f.SortBy
	}
	column, ok := ReportSortColumns[sortBy]
	if !ok {
		return "", nil, fmt.Errorf("unknown sort column %q", f.SortBy)
	}
	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}

	perPage := f.PerPage
	if perPage <= 0 {
		perPage = DefaultReportPerPage
	}
	page := f.Page
	if page < 0 {
		page = 0
	}

	query := `
		SELECT m.id, m.type, m.status, p.type AS parent_type, m.user_created, m.user_modified,
		       u.name AS user_fullname, m.created_at, m.updated_at, COUNT(*) OVER() AS total
		FROM plenum_motions m
		LEFT JOIN plenum_motions p ON p.id = m.parent_id
		LEFT JOIN users u ON u.id = m.user_modified
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + column + ` ` + direction + `, m.id ` + direction + `
		LIMIT ? OFFSET ?`
	args = append(args, perPage, page*perPage)

	return sqlx.In(query, args...)
}
