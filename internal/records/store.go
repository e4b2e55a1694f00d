package records

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omnicrm/omnicrm/internal/db"
	"github.com/omnicrm/omnicrm/internal/platform"
)

// Store persists messages and reviews in PostgreSQL. Duplicate suppression
// on (platform, external_id) is check-before-insert; callers hold no lock
// between the two calls.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a record store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const messageColumns = "id, platform, direction, content, contact_id, external_id, metadata, created_at"
const reviewColumns = "id, platform, rating, comment, author_name, external_id, response, responded_at, contact_id, branch_id, platform_url, metadata, created_at"

// FindMessageByExternalID looks up a message by its platform-native id.
func (s *Store) FindMessageByExternalID(ctx context.Context, platformType platform.Type, externalID string) (Message, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return Message{}, ErrRecordNotFound
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE platform = $1 AND external_id = $2 LIMIT 1",
		string(platformType), externalID)
	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrRecordNotFound
	}
	return msg, err
}

// InsertMessage stores a new message row.
func (s *Store) InsertMessage(ctx context.Context, msg Message) (Message, error) {
	contactID := pgtype.UUID{}
	if strings.TrimSpace(msg.ContactID) != "" {
		parsed, err := db.ParseUUID(msg.ContactID)
		if err != nil {
			return Message{}, err
		}
		contactID = parsed
	}
	metadata, err := encodeMetadata(msg.Metadata)
	if err != nil {
		return Message{}, err
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO messages (platform, direction, content, contact_id, external_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+messageColumns,
		string(msg.Platform),
		string(msg.Direction),
		msg.Content,
		contactID,
		db.Text(msg.ExternalID),
		metadata,
		db.Timestamptz(createdAt),
	)
	return scanMessage(row)
}

// FindReviewByExternalID looks up a review by its platform-native id.
func (s *Store) FindReviewByExternalID(ctx context.Context, platformType platform.Type, externalID string) (Review, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return Review{}, ErrRecordNotFound
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE platform = $1 AND external_id = $2 LIMIT 1",
		string(platformType), externalID)
	review, err := scanReview(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, ErrRecordNotFound
	}
	return review, err
}

// InsertReview stores a new review row.
func (s *Store) InsertReview(ctx context.Context, review Review) (Review, error) {
	contactID := pgtype.UUID{}
	if strings.TrimSpace(review.ContactID) != "" {
		parsed, err := db.ParseUUID(review.ContactID)
		if err != nil {
			return Review{}, err
		}
		contactID = parsed
	}
	branchID := pgtype.UUID{}
	if strings.TrimSpace(review.BranchID) != "" {
		parsed, err := db.ParseUUID(review.BranchID)
		if err != nil {
			return Review{}, err
		}
		branchID = parsed
	}
	metadata, err := encodeMetadata(review.Metadata)
	if err != nil {
		return Review{}, err
	}
	createdAt := review.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO reviews (platform, rating, comment, author_name, external_id, contact_id, branch_id, platform_url, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+reviewColumns,
		string(review.Platform),
		review.Rating,
		db.Text(review.Comment),
		review.AuthorName,
		review.ExternalID,
		contactID,
		branchID,
		db.Text(review.PlatformURL),
		metadata,
		db.Timestamptz(createdAt),
	)
	return scanReview(row)
}

// GetReviewByID loads a review by id.
func (s *Store) GetReviewByID(ctx context.Context, reviewID string) (Review, error) {
	pgID, err := db.ParseUUID(reviewID)
	if err != nil {
		return Review{}, err
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE id = $1", pgID)
	review, scanErr := scanReview(row)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return Review{}, ErrRecordNotFound
	}
	return review, scanErr
}

// SetReviewResponse records the operator response sent back to the platform.
func (s *Store) SetReviewResponse(ctx context.Context, reviewID, response string, respondedAt time.Time) (Review, error) {
	pgID, err := db.ParseUUID(reviewID)
	if err != nil {
		return Review{}, err
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE reviews SET response = $2, responded_at = $3 WHERE id = $1
		 RETURNING `+reviewColumns,
		pgID, db.Text(response), db.Timestamptz(respondedAt))
	review, scanErr := scanReview(row)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return Review{}, ErrRecordNotFound
	}
	return review, scanErr
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		id         pgtype.UUID
		platformV  string
		direction  string
		content    string
		contactID  pgtype.UUID
		externalID pgtype.Text
		metadata   []byte
		createdAt  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &platformV, &direction, &content, &contactID, &externalID, &metadata, &createdAt); err != nil {
		return Message{}, err
	}
	decoded, err := decodeMetadata(metadata)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:         db.UUIDToString(id),
		Platform:   platform.Type(platformV),
		Direction:  platform.Direction(direction),
		Content:    content,
		ContactID:  db.UUIDToString(contactID),
		ExternalID: db.TextToString(externalID),
		Metadata:   decoded,
		CreatedAt:  db.TimeFromPg(createdAt),
	}, nil
}

func scanReview(row pgx.Row) (Review, error) {
	var (
		id          pgtype.UUID
		platformV   string
		rating      int
		comment     pgtype.Text
		authorName  string
		externalID  string
		response    pgtype.Text
		respondedAt pgtype.Timestamptz
		contactID   pgtype.UUID
		branchID    pgtype.UUID
		platformURL pgtype.Text
		metadata    []byte
		createdAt   pgtype.Timestamptz
	)
	if err := row.Scan(&id, &platformV, &rating, &comment, &authorName, &externalID, &response, &respondedAt, &contactID, &branchID, &platformURL, &metadata, &createdAt); err != nil {
		return Review{}, err
	}
	decoded, err := decodeMetadata(metadata)
	if err != nil {
		return Review{}, err
	}
	return Review{
		ID:          db.UUIDToString(id),
		Platform:    platform.Type(platformV),
		Rating:      rating,
		Comment:     db.TextToString(comment),
		AuthorName:  authorName,
		ExternalID:  externalID,
		Response:    db.TextToString(response),
		RespondedAt: db.TimeFromPg(respondedAt),
		ContactID:   db.UUIDToString(contactID),
		BranchID:    db.UUIDToString(branchID),
		PlatformURL: db.TextToString(platformURL),
		Metadata:    decoded,
		CreatedAt:   db.TimeFromPg(createdAt),
	}, nil
}

func encodeMetadata(value map[string]any) ([]byte, error) {
	if value == nil {
		value = map[string]any{}
	}
	return json.Marshal(value)
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}
