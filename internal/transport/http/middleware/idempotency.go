package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyWindow is how long a stored finalize response is replayed.
// After it lapses the key may be reused for a new request.
const IdempotencyWindow = 24 * time.Hour

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

type idempotencyDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// IdempotencyStore persists the first response per (user, endpoint, key) in
// idempotency_keys.
type IdempotencyStore struct {
	db     idempotencyDB
	window time.Duration
}

func NewIdempotencyStore(db idempotencyDB) *IdempotencyStore {
	return &IdempotencyStore{db: db, window: IdempotencyWindow}
}

// RequestHash fingerprints the parts of a request that must match on replay.
func RequestHash(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Check returns the stored response for a live key. A live key recorded for a
// different request hash yields ErrIdempotencyConflict.
func (s *IdempotencyStore) Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}
	var (
		storedHash string
		stored     json.RawMessage
	)
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3 AND created_at > $4
  `, userID, key, endpoint, time.Now().Add(-s.window)).Scan(&storedHash, &stored)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case storedHash != requestHash:
		return nil, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

// Save records response under key. Expired rows for the same key are
// replaced; a live row for another request hash is left alone and reported
// as a conflict.
func (s *IdempotencyStore) Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	if s == nil || s.db == nil {
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, response_json)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (user_id, key, endpoint) DO UPDATE
    SET request_hash = EXCLUDED.request_hash,
        response_json = EXCLUDED.response_json,
        created_at = now()
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
       OR idempotency_keys.created_at <= $6
  `, userID, key, endpoint, requestHash, response, time.Now().Add(-s.window))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}
