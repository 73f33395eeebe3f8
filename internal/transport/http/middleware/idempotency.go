package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

// IdempotencyStore persists the first response produced for a given
// (user, endpoint, key) so retried submissions replay instead of re-merging.
type IdempotencyStore struct {
	db *pgxpool.Pool
}

func NewIdempotencyStore(db *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// RequestHash fingerprints a request body. Two requests under the same key
// must carry the same fingerprint to be treated as retries.
func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Check looks up a previously stored response for the key. It returns the
// stored body when the fingerprint matches, ErrIdempotencyConflict when the
// same key was used with a different body.
func (s *IdempotencyStore) Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}

	row := s.db.QueryRow(ctx,
		`SELECT request_hash, response_json FROM idempotency_keys
		 WHERE user_id = $1 AND key = $2 AND endpoint = $3`,
		userID, key, endpoint)

	var storedHash string
	var stored json.RawMessage
	switch err := row.Scan(&storedHash, &stored); {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case storedHash != requestHash:
		return nil, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

// Save records the response for the key. A concurrent writer that stored a
// different fingerprint first wins; the losing writer gets the conflict.
func (s *IdempotencyStore) Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	if s == nil || s.db == nil {
		return nil
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, response_json)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, key, endpoint)
		 DO UPDATE SET response_json = EXCLUDED.response_json
		 WHERE idempotency_keys.request_hash = EXCLUDED.request_hash`,
		userID, key, endpoint, requestHash, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// PruneBefore drops keys older than the cutoff and reports how many went.
// Replay protection is only meaningful within a retry horizon.
func (s *IdempotencyStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
