// Package store persists the donation program's emitted events in Postgres
// so the API can answer history queries without walking ledger accounts.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solstream/tipjar/program/pkg/prog"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// Config configures a Store.
type Config struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	return nil
}

// Store writes and reads donation history rows.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

// New creates a Store.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{log: cfg.Logger, pool: cfg.Pool}, nil
}

// DonationRow is one recorded donation.
type DonationRow struct {
	ID         uuid.UUID `json:"id"`
	Streamer   string    `json:"streamer"`
	DonationID uint64    `json:"donation_id"`
	Donor      string    `json:"donor"`
	Amount     uint64    `json:"amount"`
	Fee        uint64    `json:"fee"`
	Message    string    `json:"message"`
	TokenMint  *string   `json:"token_mint,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// StreamerRow is one recorded streamer registration.
type StreamerRow struct {
	Wallet       string    `json:"wallet"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RecordStreamer inserts a streamer registration. Replayed events are
// idempotent: an existing row is left untouched.
func (s *Store) RecordStreamer(ctx context.Context, ev prog.StreamerRegistered) error {
	s.log.Debug("store: recording streamer", "wallet", ev.Streamer.String())

	_, err := s.pool.Exec(ctx, `
		INSERT INTO streamers (wallet, registered_at)
		VALUES ($1, $2)
		ON CONFLICT (wallet) DO NOTHING
	`, ev.Streamer.String(), time.Unix(ev.Timestamp, 0).UTC())
	if err != nil {
		return fmt.Errorf("failed to insert streamer: %w", err)
	}
	return nil
}

// RecordDonation inserts a donation. The (streamer, donation_id) pair is
// unique, so replayed events are idempotent.
func (s *Store) RecordDonation(ctx context.Context, ev prog.DonationReceived) error {
	s.log.Debug("store: recording donation",
		"streamer", ev.Streamer.String(), "donation_id", ev.DonationID)

	var mint *string
	if !ev.TokenMint.IsZero() {
		m := ev.TokenMint.String()
		mint = &m
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO donations (id, streamer, donation_id, donor, amount, fee, message, token_mint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (streamer, donation_id) DO NOTHING
	`,
		uuid.New(),
		ev.Streamer.String(),
		int64(ev.DonationID),
		ev.Donor.String(),
		int64(ev.Amount),
		int64(ev.Fee),
		ev.Message,
		mint,
		time.Unix(ev.Timestamp, 0).UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}
	return nil
}

// GetStreamer returns the registration row for a wallet.
func (s *Store) GetStreamer(ctx context.Context, wallet string) (*StreamerRow, error) {
	var row StreamerRow
	err := s.pool.QueryRow(ctx, `
		SELECT wallet, registered_at FROM streamers WHERE wallet = $1
	`, wallet).Scan(&row.Wallet, &row.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get streamer %s: %w", wallet, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streamer %s: %w", wallet, err)
	}
	return &row, nil
}

// ListDonationsByStreamer returns a streamer's donations, newest first.
func (s *Store) ListDonationsByStreamer(ctx context.Context, streamer string, limit, offset int) ([]DonationRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, streamer, donation_id, donor, amount, fee, message, token_mint, created_at
		FROM donations
		WHERE streamer = $1
		ORDER BY created_at DESC, donation_id DESC
		LIMIT $2 OFFSET $3
	`, streamer, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations for %s: %w", streamer, err)
	}
	defer rows.Close()

	out := make([]DonationRow, 0, limit)
	for rows.Next() {
		var row DonationRow
		var donationID, amount, fee int64
		if err := rows.Scan(&row.ID, &row.Streamer, &donationID, &row.Donor, &amount, &fee, &row.Message, &row.TokenMint, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan donation row: %w", err)
		}
		row.DonationID = uint64(donationID)
		row.Amount = uint64(amount)
		row.Fee = uint64(fee)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donation rows: %w", err)
	}
	return out, nil
}

// CountDonations returns the number of recorded donations for a streamer.
func (s *Store) CountDonations(ctx context.Context, streamer string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM donations WHERE streamer = $1
	`, streamer).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count donations for %s: %w", streamer, err)
	}
	return count, nil
}
