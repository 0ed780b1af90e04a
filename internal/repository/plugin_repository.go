package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Plugin is an installed meeting form or motion type subplugin.
type Plugin struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	SortOrder int    `json:"sortOrder"`
}

type PluginRepository interface {
	List(ctx context.Context, kind string) ([]*Plugin, error)
	Find(ctx context.Context, kind, name string) (*Plugin, error)
	SetEnabled(ctx context.Context, kind, name string, enabled bool) error
	SwapOrder(ctx context.Context, kind, first, second string) error
	GetConfig(ctx context.Context, component string) (map[string]string, error)
	SetConfig(ctx context.Context, component, name, value string) error
}

type pgPluginRepository struct {
	pool *pgxpool.Pool
}

func NewPluginRepository(pool *pgxpool.Pool) PluginRepository {
	return &pgPluginRepository{pool: pool}
}

func (r *pgPluginRepository) List(ctx context.Context, kind string) ([]*Plugin, error) {
	query := `SELECT kind, name, enabled, sort_order FROM plenum_plugins WHERE kind = $1 ORDER BY sort_order, name`
	rows, err := r.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plugins []*Plugin
	for rows.Next() {
		p := &Plugin{}
		if err := rows.Scan(&p.Kind, &p.Name, &p.Enabled, &p.SortOrder); err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, rows.Err()
}

func (r *pgPluginRepository) Find(ctx context.Context, kind, name string) (*Plugin, error) {
	query := `SELECT kind, name, enabled, sort_order FROM plenum_plugins WHERE kind = $1 AND name = $2`
	p := &Plugin{}
	err := r.pool.QueryRow(ctx, query, kind, name).Scan(&p.Kind, &p.Name, &p.Enabled, &p.SortOrder)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgPluginRepository) SetEnabled(ctx context.Context, kind, name string, enabled bool) error {
	query := `UPDATE plenum_plugins SET enabled = $3 WHERE kind = $1 AND name = $2`
	_, err := r.pool.Exec(ctx, query, kind, name, enabled)
	return err
}

// SwapOrder exchanges the sort positions of two plugins of the same kind.
func (r *pgPluginRepository) SwapOrder(ctx context.Context, kind, first, second string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE plenum_plugins AS p
		SET sort_order = o.sort_order
		FROM plenum_plugins AS o
		WHERE p.kind = $1 AND o.kind = $1
		  AND ((p.name = $2 AND o.name = $3) OR (p.name = $3 AND o.name = $2))
	`
	if _, err := tx.Exec(ctx, query, kind, first, second); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgPluginRepository) GetConfig(ctx context.Context, component string) (map[string]string, error) {
	query := `SELECT name, value FROM plenum_plugin_config WHERE component = $1`
	rows, err := r.pool.Query(ctx, query, component)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		config[name] = value
	}
	return config, rows.Err()
}

func (r *pgPluginRepository) SetConfig(ctx context.Context, component, name, value string) error {
	query := `
		INSERT INTO plenum_plugin_config (component, name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (component, name) DO UPDATE SET value = EXCLUDED.value
	`
	_, err := r.pool.Exec(ctx, query, component, name, value)
	return err
}
