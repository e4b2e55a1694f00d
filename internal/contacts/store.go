package contacts

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omnicrm/omnicrm/internal/db"
)

// Store persists contacts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a contact store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const contactColumns = "id, branch_id, display_name, phone, email, tags, created_at, updated_at"

// GetByID loads a contact by id.
func (s *Store) GetByID(ctx context.Context, contactID string) (Contact, error) {
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return Contact{}, err
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE id = $1", pgID)
	return scanContact(row)
}

// FindByPhone returns the first contact in the branch with the given phone value.
func (s *Store) FindByPhone(ctx context.Context, branchID, phone string) (Contact, error) {
	return s.findByField(ctx, branchID, "phone", phone)
}

// FindByEmail returns the first contact in the branch with the given email.
func (s *Store) FindByEmail(ctx context.Context, branchID, email string) (Contact, error) {
	return s.findByField(ctx, branchID, "email", email)
}

func (s *Store) findByField(ctx context.Context, branchID, field, value string) (Contact, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Contact{}, ErrContactNotFound
	}
	pgBranchID, err := db.ParseUUID(branchID)
	if err != nil {
		return Contact{}, err
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE branch_id = $1 AND "+field+" = $2 ORDER BY created_at LIMIT 1",
		pgBranchID, value)
	contact, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrContactNotFound
	}
	return contact, err
}

// Create inserts a new contact.
func (s *Store) Create(ctx context.Context, req CreateRequest) (Contact, error) {
	pgBranchID, err := db.ParseUUID(req.BranchID)
	if err != nil {
		return Contact{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO contacts (branch_id, display_name, phone, email, tags)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+contactColumns,
		pgBranchID,
		db.Text(req.DisplayName),
		db.Text(req.Phone),
		db.Text(req.Email),
		normalizeTags(req.Tags),
	)
	return scanContact(row)
}

// ListByBranch returns all contacts in a branch, newest first.
func (s *Store) ListByBranch(ctx context.Context, branchID string) ([]Contact, error) {
	pgBranchID, err := db.ParseUUID(branchID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE branch_id = $1 ORDER BY created_at DESC",
		pgBranchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		id        pgtype.UUID
		branchID  pgtype.UUID
		name      pgtype.Text
		phone     pgtype.Text
		email     pgtype.Text
		tags      []string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &branchID, &name, &phone, &email, &tags, &createdAt, &updatedAt); err != nil {
		return Contact{}, err
	}
	return Contact{
		ID:          db.UUIDToString(id),
		BranchID:    db.UUIDToString(branchID),
		DisplayName: db.TextToString(name),
		Phone:       db.TextToString(phone),
		Email:       db.TextToString(email),
		Tags:        normalizeTags(tags),
		CreatedAt:   db.TimeFromPg(createdAt),
		UpdatedAt:   db.TimeFromPg(updatedAt),
	}, nil
}

func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
