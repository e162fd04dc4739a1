// Package collection resolves collection identifiers to their on-chain
// contract addresses.
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCollectionNotFound is returned when a collection id does not resolve.
// It surfaces at the web boundary as a not-found error.
var ErrCollectionNotFound = errors.New("collection not found")

// Directory looks up collections.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

// Resolve returns the contract address of the collection.
func (d *Directory) Resolve(ctx context.Context, collectionID string) (string, error) {
	var contractAddress string
	err := d.pool.QueryRow(ctx,
		`SELECT contract_address FROM collections WHERE id = $1`,
		collectionID,
	).Scan(&contractAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
	}
	if err != nil {
		return "", fmt.Errorf("resolve collection %s: %w", collectionID, err)
	}
	return contractAddress, nil
}
