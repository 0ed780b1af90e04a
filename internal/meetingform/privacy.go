package meetingform

import (
	"context"
	"fmt"
)

// connectionStore is the storage both the jitsi2 speakers and the deft peers
// share for privacy requests.
type connectionStore[T any] interface {
	FindByUser(ctx context.Context, plenumID, userID string) ([]T, error)
	FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error)
	DeleteByUser(ctx context.Context, plenumIDs []string, userID string) error
	DeleteByUsers(ctx context.Context, plenumID string, userIDs []string) error
	DeleteByPlenum(ctx context.Context, plenumID string) error
}

// connectionProvider exports and deletes a form's connection records.
type connectionProvider[T any] struct {
	name  string
	store connectionStore[T]
}

func (p *connectionProvider[T]) Name() string { return p.name }

func (p *connectionProvider[T]) PlenumIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return p.store.FindPlenumIDsByUser(ctx, userID)
}

func (p *connectionProvider[T]) ExportUserData(ctx context.Context, plenumID, userID string) (interface{}, error) {
	rows, err := p.store.FindByUser(ctx, plenumID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to export %s connections: %w", p.name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return map[string]interface{}{"connections": rows}, nil
}

func (p *connectionProvider[T]) DeleteDataForUser(ctx context.Context, plenumIDs []string, userID string) error {
	return p.store.DeleteByUser(ctx, plenumIDs, userID)
}

func (p *connectionProvider[T]) DeleteDataForUsers(ctx context.Context, plenumID string, userIDs []string) error {
	return p.store.DeleteByUsers(ctx, plenumID, userIDs)
}

func (p *connectionProvider[T]) DeleteDataForContext(ctx context.Context, plenumID string) error {
	return p.store.DeleteByPlenum(ctx, plenumID)
}
