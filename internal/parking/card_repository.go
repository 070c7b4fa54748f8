package parking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CardRepository defines the interface for RFID card persistence.
type CardRepository interface {
	// Get retrieves a card by its normalised UID.
	// Returns ErrCardNotFound if the card is not registered.
	Get(ctx context.Context, cardUID string) (*Card, error)

	// List retrieves all cards, optionally filtered to active ones.
	List(ctx context.Context, activeOnly bool) ([]Card, error)

	// Create registers a new card.
	// Returns ErrCardExists if the UID is already registered.
	Create(ctx context.Context, card *Card) error

	// Update modifies a card's mutable fields.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *Card) error

	// Delete removes a card by UID.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, cardUID string) error

	// RecentUnknown returns UIDs denied at a gate within the window that
	// are not registered, most recently seen first. Feeds the card
	// registration form so an admin can tap a card at the reader and pick
	// its UID from a list instead of typing it.
	RecentUnknown(ctx context.Context, window time.Duration, limit int) ([]UnknownCard, error)
}

// UnknownCard is an unregistered UID observed at a reader.
type UnknownCard struct {
	CardUID  string    `json:"card_uid"`
	LastSeen time.Time `json:"last_seen"`
	Seen     int       `json:"seen_count"`
}

// SQLiteCardRepository implements CardRepository using SQLite.
type SQLiteCardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new SQLite-backed card repository.
func NewCardRepository(db *sql.DB) *SQLiteCardRepository {
	return &SQLiteCardRepository{db: db}
}

const cardColumns = "card_uid, owner_name, owner_email, phone, vehicle_plate, is_active, access_level, created_at, updated_at"

// Get retrieves a card by its normalised UID.
func (r *SQLiteCardRepository) Get(ctx context.Context, cardUID string) (*Card, error) {
	uid, err := NormalizeCardUID(cardUID)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM rfid_cards WHERE card_uid = ?", uid)
	return scanCard(row)
}

// List retrieves all cards, optionally filtered to active ones.
func (r *SQLiteCardRepository) List(ctx context.Context, activeOnly bool) ([]Card, error) {
	query := "SELECT " + cardColumns + " FROM rfid_cards"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	defer rows.Close()

	cards := []Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cards: %w", err)
	}
	return cards, nil
}

// Create registers a new card. The UID is normalised before insertion.
func (r *SQLiteCardRepository) Create(ctx context.Context, card *Card) error {
	uid, err := NormalizeCardUID(card.CardUID)
	if err != nil {
		return err
	}
	card.CardUID = uid

	if card.AccessLevel == "" {
		card.AccessLevel = AccessRegular
	}

	now := time.Now().UTC().Truncate(time.Second)
	card.CreatedAt = now
	card.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO rfid_cards (card_uid, owner_name, owner_email, phone, vehicle_plate, is_active, access_level, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.CardUID, card.OwnerName,
		nullString(card.OwnerEmail), nullString(card.Phone), nullString(card.VehiclePlate),
		boolToInt(card.IsActive), card.AccessLevel,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrCardExists
		}
		return fmt.Errorf("creating card: %w", err)
	}
	return nil
}

// Update modifies a card's mutable fields (everything but the UID).
func (r *SQLiteCardRepository) Update(ctx context.Context, card *Card) error {
	uid, err := NormalizeCardUID(card.CardUID)
	if err != nil {
		return err
	}
	card.CardUID = uid
	card.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`UPDATE rfid_cards
		 SET owner_name = ?, owner_email = ?, phone = ?, vehicle_plate = ?,
		     is_active = ?, access_level = ?, updated_at = ?
		 WHERE card_uid = ?`,
		card.OwnerName,
		nullString(card.OwnerEmail), nullString(card.Phone), nullString(card.VehiclePlate),
		boolToInt(card.IsActive), card.AccessLevel,
		card.UpdatedAt.Format(time.RFC3339),
		card.CardUID,
	)
	if err != nil {
		return fmt.Errorf("updating card: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrCardNotFound
	}
	return nil
}

// Delete removes a card by UID.
func (r *SQLiteCardRepository) Delete(ctx context.Context, cardUID string) error {
	uid, err := NormalizeCardUID(cardUID)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM rfid_cards WHERE card_uid = ?", uid)
	if err != nil {
		return fmt.Errorf("deleting card: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrCardNotFound
	}
	return nil
}

// RecentUnknown returns unregistered UIDs denied at a gate within the window.
// Only denial rows count: a successful event for an unregistered UID would
// mean the controller's whitelist is ahead of the database, which resolves
// itself on the next sync.
func (r *SQLiteCardRepository) RecentUnknown(ctx context.Context, window time.Duration, limit int) ([]UnknownCard, error) {
	if limit <= 0 {
		limit = 20
	}
	since := time.Now().UTC().Add(-window).Format(time.RFC3339)

	rows, err := r.db.QueryContext(ctx,
		`SELECT l.card_uid, MAX(l.timestamp), COUNT(*)
		 FROM entry_exit_logs l
		 LEFT JOIN rfid_cards c ON c.card_uid = l.card_uid
		 WHERE c.card_uid IS NULL AND l.status LIKE 'denied%' AND l.timestamp >= ?
		 GROUP BY l.card_uid
		 ORDER BY MAX(l.timestamp) DESC
		 LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unknown cards: %w", err)
	}
	defer rows.Close()

	unknown := []UnknownCard{}
	for rows.Next() {
		var u UnknownCard
		var lastSeen string
		if err := rows.Scan(&u.CardUID, &lastSeen, &u.Seen); err != nil {
			return nil, fmt.Errorf("scanning unknown card: %w", err)
		}
		u.LastSeen, _ = time.Parse(time.RFC3339, lastSeen) //nolint:errcheck // format is controlled
		unknown = append(unknown, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unknown cards: %w", err)
	}
	return unknown, nil
}

// scanCard scans a card from a row or rows cursor.
func scanCard(s scanner) (*Card, error) {
	var c Card
	var email, phone, plate sql.NullString
	var isActive int
	var createdAt, updatedAt string

	err := s.Scan(&c.CardUID, &c.OwnerName, &email, &phone, &plate,
		&isActive, &c.AccessLevel, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("scanning card: %w", err)
	}

	c.IsActive = isActive != 0
	if email.Valid {
		c.OwnerEmail = email.String
	}
	if phone.Valid {
		c.Phone = phone.String
	}
	if plate.Valid {
		c.VehiclePlate = plate.String
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &c, nil
}

// nullString returns a NULL-able value for empty strings.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
