package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RoleAssignment struct {
	ID        string    `json:"id"`
	PlenumID  string    `json:"plenumId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// CapabilityOverride changes the archetype default of one role in one plenum.
type CapabilityOverride struct {
	PlenumID   string `json:"plenumId"`
	Role       string `json:"role"`
	Capability string `json:"capability"`
	Permission string `json:"permission"`
}

type RoleRepository interface {
	Assign(ctx context.Context, assignment *RoleAssignment) error
	Unassign(ctx context.Context, plenumID, userID, role string) error
	FindRoles(ctx context.Context, plenumID, userID string) ([]string, error)
	FindByPlenum(ctx context.Context, plenumID string) ([]*RoleAssignment, error)
	SetOverride(ctx context.Context, override *CapabilityOverride) error
	FindOverrides(ctx context.Context, plenumID string, roles []string) ([]*CapabilityOverride, error)
	AddGroupMember(ctx context.Context, plenumID string, groupID int64, userID string) error
	IsGroupMember(ctx context.Context, plenumID string, groupID int64, userID string) (bool, error)
	DeleteByPlenum(ctx context.Context, plenumID string) error
}

type pgRoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &pgRoleRepository{pool: pool}
}

func (r *pgRoleRepository) Assign(ctx context.Context, assignment *RoleAssignment) error {
	query := `
		INSERT INTO plenum_role_assignments (plenum_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (plenum_id, user_id, role) DO UPDATE SET role = EXCLUDED.role
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query, assignment.PlenumID, assignment.UserID, assignment.Role).
		Scan(&assignment.ID, &assignment.CreatedAt)
}

func (r *pgRoleRepository) Unassign(ctx context.Context, plenumID, userID, role string) error {
	query := `DELETE FROM plenum_role_assignments WHERE plenum_id = $1 AND user_id = $2 AND role = $3`
	_, err := r.pool.Exec(ctx, query, plenumID, userID, role)
	return err
}

func (r *pgRoleRepository) FindRoles(ctx context.Context, plenumID, userID string) ([]string, error) {
	query := `SELECT role FROM plenum_role_assignments WHERE plenum_id = $1 AND user_id = $2 ORDER BY role`
	rows, err := r.pool.Query(ctx, query, plenumID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *pgRoleRepository) FindByPlenum(ctx context.Context, plenumID string) ([]*RoleAssignment, error) {
	query := `
		SELECT id, plenum_id, user_id, role, created_at
		FROM plenum_role_assignments WHERE plenum_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, plenumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*RoleAssignment
	for rows.Next() {
		a := &RoleAssignment{}
		if err := rows.Scan(&a.ID, &a.PlenumID, &a.UserID, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *pgRoleRepository) SetOverride(ctx context.Context, override *CapabilityOverride) error {
	query := `
		INSERT INTO plenum_capability_overrides (plenum_id, role, capability, permission)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (plenum_id, role, capability) DO UPDATE SET permission = EXCLUDED.permission
	`
	_, err := r.pool.Exec(ctx, query, override.PlenumID, override.Role, override.Capability, override.Permission)
	return err
}

func (r *pgRoleRepository) FindOverrides(ctx context.Context, plenumID string, roles []string) ([]*CapabilityOverride, error) {
	query := `
		SELECT plenum_id, role, capability, permission
		FROM plenum_capability_overrides
		WHERE plenum_id = $1 AND role = ANY($2)
	`
	rows, err := r.pool.Query(ctx, query, plenumID, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []*CapabilityOverride
	for rows.Next() {
		o := &CapabilityOverride{}
		if err := rows.Scan(&o.PlenumID, &o.Role, &o.Capability, &o.Permission); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (r *pgRoleRepository) AddGroupMember(ctx context.Context, plenumID string, groupID int64, userID string) error {
	query := `
		INSERT INTO plenum_group_members (plenum_id, group_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, plenumID, groupID, userID)
	return err
}

func (r *pgRoleRepository) IsGroupMember(ctx context.Context, plenumID string, groupID int64, userID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM plenum_group_members
			WHERE plenum_id = $1 AND group_id = $2 AND user_id = $3
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, plenumID, groupID, userID).Scan(&exists)
	return exists, err
}

func (r *pgRoleRepository) DeleteByPlenum(ctx context.Context, plenumID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM plenum_role_assignments WHERE plenum_id = $1`, plenumID)
	return err
}
