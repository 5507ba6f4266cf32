package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

// IdempotencyStore replays the stored response when the same employee
// retries the same request with the same Idempotency-Key. A key reuse
// with a different payload is a conflict.
type IdempotencyStore interface {
	Check(ctx context.Context, employeeID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, employeeID, endpoint, key, requestHash string, response json.RawMessage) error
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type PgIdempotencyStore struct {
	db *pgxpool.Pool
}

func NewPgIdempotencyStore(db *pgxpool.Pool) *PgIdempotencyStore {
	return &PgIdempotencyStore{db: db}
}

func (s *PgIdempotencyStore) Check(ctx context.Context, employeeID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	var storedHash string
	var stored json.RawMessage
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE employee_id = $1 AND key = $2 AND endpoint = $3
  `, employeeID, key, endpoint).Scan(&storedHash, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if storedHash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

func (s *PgIdempotencyStore) Save(ctx context.Context, employeeID, endpoint, key, requestHash string, response json.RawMessage) error {
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (employee_id, key, endpoint, request_hash, response_json)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (employee_id, key, endpoint)
    DO UPDATE SET response_json = EXCLUDED.response_json
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, employeeID, key, endpoint, requestHash, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

type memoryIdempotencyEntry struct {
	requestHash string
	response    json.RawMessage
}

type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryIdempotencyEntry
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string]memoryIdempotencyEntry)}
}

func idemKey(employeeID, endpoint, key string) string {
	return employeeID + "|" + endpoint + "|" + key
}

func (s *MemoryIdempotencyStore) Check(ctx context.Context, employeeID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[idemKey(employeeID, endpoint, key)]
	if !ok {
		return nil, false, nil
	}
	if entry.requestHash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	return entry.response, true, nil
}

func (s *MemoryIdempotencyStore) Save(ctx context.Context, employeeID, endpoint, key, requestHash string, response json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapKey := idemKey(employeeID, endpoint, key)
	if entry, ok := s.entries[mapKey]; ok && entry.requestHash != requestHash {
		return ErrIdempotencyConflict
	}
	s.entries[mapKey] = memoryIdempotencyEntry{requestHash: requestHash, response: response}
	return nil
}
