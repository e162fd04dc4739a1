// Package store reads marketplace events captured by the ingestion pipeline.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"marketlens/internal/model"
)

// Store provides read access to the persisted marketplace events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool wraps an existing pool, sharing it with other readers.
func NewStoreWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EventFilter selects persisted events. Zero fields are not constrained.
// Names with more than one entry matches any of them; DataEq matches
// equality on nested data fields.
type EventFilter struct {
	UserID          string
	AddressContract string
	Names           []string
	DataEq          map[string]string
}

// buildFindQuery renders the filter into SQL and its positional args.
// DataEq keys are applied in sorted order so placeholders are stable.
func buildFindQuery(filter EventFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		clauses = append(clauses, "user_id = "+arg(filter.UserID))
	}
	if filter.AddressContract != "" {
		clauses = append(clauses, "address_contract = "+arg(filter.AddressContract))
	}
	if len(filter.Names) == 1 {
		clauses = append(clauses, "name = "+arg(filter.Names[0]))
	} else if len(filter.Names) > 1 {
		clauses = append(clauses, "name = ANY("+arg(filter.Names)+")")
	}
	keys := make([]string, 0, len(filter.DataEq))
	for key := range filter.DataEq {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		clauses = append(clauses, fmt.Sprintf("data->>%s = %s", arg(key), arg(filter.DataEq[key])))
	}

	query := "SELECT id, user_id, address_contract, name, COALESCE(value, ''), data, created_at FROM marketplace_events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	return query, args
}

// Find returns the events matching the filter, oldest first.
func (s *Store) Find(ctx context.Context, filter EventFilter) ([]model.PersistedEvent, error) {
	query, args := buildFindQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.PersistedEvent
	for rows.Next() {
		var (
			event   model.PersistedEvent
			rawData []byte
		)
		if err := rows.Scan(&event.ID, &event.UserID, &event.AddressContract, &event.Name, &event.Value, &rawData, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(rawData) > 0 {
			if err := json.Unmarshal(rawData, &event.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}
