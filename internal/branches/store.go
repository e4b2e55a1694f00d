// Package branches stores CRM branches and resolves the default branch for
// platforms that have no branch concept of their own.
package branches

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omnicrm/omnicrm/internal/db"
)

// ErrNoBranches is returned when no branch exists to attach inbound content to.
var ErrNoBranches = errors.New("no branches configured")

// Branch is a physical location or organizational unit of the CRM tenant.
type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists branches in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a branch store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const branchColumns = "id, name, address, created_at"

// Default returns the first branch by creation order. Inbound platforms
// without a branch concept (Telegram) attach their content here.
func (s *Store) Default(ctx context.Context) (Branch, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+branchColumns+" FROM branches ORDER BY created_at LIMIT 1")
	branch, err := scanBranch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, ErrNoBranches
	}
	return branch, err
}

// GetByID loads a branch by id.
func (s *Store) GetByID(ctx context.Context, branchID string) (Branch, error) {
	pgID, err := db.ParseUUID(branchID)
	if err != nil {
		return Branch{}, err
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+branchColumns+" FROM branches WHERE id = $1", pgID)
	branch, scanErr := scanBranch(row)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return Branch{}, ErrNoBranches
	}
	return branch, scanErr
}

// List returns all branches by creation order.
func (s *Store) List(ctx context.Context) ([]Branch, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+branchColumns+" FROM branches ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Branch, 0)
	for rows.Next() {
		branch, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, branch)
	}
	return items, rows.Err()
}

// Create inserts a new branch.
func (s *Store) Create(ctx context.Context, name, address string) (Branch, error) {
	row := s.pool.QueryRow(ctx,
		"INSERT INTO branches (name, address) VALUES ($1, $2) RETURNING "+branchColumns,
		name, db.Text(address))
	return scanBranch(row)
}

func scanBranch(row pgx.Row) (Branch, error) {
	var (
		id        pgtype.UUID
		name      string
		address   pgtype.Text
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &name, &address, &createdAt); err != nil {
		return Branch{}, err
	}
	return Branch{
		ID:        db.UUIDToString(id),
		Name:      name,
		Address:   db.TextToString(address),
		CreatedAt: db.TimeFromPg(createdAt),
	}, nil
}
