package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/taskhub/internal/domain"
)

var auditColumns = []string{
	"id", "event_type", "entity_type", "entity_id", "user_id", "message", "metadata", "created_at",
}

// AuditEventRepository is the append-only store of audit events.
// There are deliberately no update or delete methods.
type AuditEventRepository struct {
	pool *pgxpool.Pool
}

// NewAuditEventRepository creates a new AuditEventRepository.
func NewAuditEventRepository(pool *pgxpool.Pool) *AuditEventRepository {
	return &AuditEventRepository{pool: pool}
}

// Append records a new event and fills in its ID and CreatedAt.
func (r *AuditEventRepository) Append(ctx context.Context, event *domain.AuditEvent) error {
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	query, args, err := psql.
		Insert("audit_events").
		Columns("event_type", "entity_type", "entity_id", "user_id", "message", "metadata").
		Values(event.EventType, event.EntityType, event.EntityID, event.UserID, event.Message, event.Metadata).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&event.ID, &event.CreatedAt); err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}
	return nil
}

// ListByEntity returns the events of one entity, newest first.
func (r *AuditEventRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEvent, error) {
	return r.list(ctx, psql.
		Select(auditColumns...).
		From("audit_events").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC"))
}

// List returns the most recent events across all entities.
func (r *AuditEventRepository) List(ctx context.Context, limit int) ([]*domain.AuditEvent, error) {
	return r.list(ctx, psql.
		Select(auditColumns...).
		From("audit_events").
		OrderBy("created_at DESC").
		Limit(uint64(limit)))
}

func (r *AuditEventRepository) list(ctx context.Context, qb sq.SelectBuilder) ([]*domain.AuditEvent, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []*domain.AuditEvent{}
	for rows.Next() {
		var event domain.AuditEvent
		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.EntityType,
			&event.EntityID,
			&event.UserID,
			&event.Message,
			&event.Metadata,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return events, nil
}
