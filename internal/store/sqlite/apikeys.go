package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snipstash/snipstash-server/internal/domain"
	"github.com/snipstash/snipstash-server/internal/store"
)

const apiKeyColumns = `id, user_id, name, key_hash, created_at, last_used_at`

func scanAPIKey(scanner interface{ Scan(dest ...any) error }) (*domain.APIKey, error) {
	var (
		k          domain.APIKey
		createdAt  string
		lastUsedAt sql.NullString
	)
	if err := scanner.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &createdAt, &lastUsedAt); err != nil {
		return nil, err
	}
	var err error
	if k.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if k.LastUsedAt, err = parseNullableTime(lastUsedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

// CreateAPIKey stores a new API key.
func (s *Store) CreateAPIKey(ctx context.Context, k *domain.APIKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, name, key_hash, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		k.ID, k.UserID, k.Name, k.KeyHash, formatTime(k.CreatedAt), nullTimeString(k.LastUsedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKey retrieves an API key by ID.
func (s *Store) GetAPIKey(ctx context.Context, keyID string) (*domain.APIKey, error) {
	k, err := scanAPIKey(s.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, keyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return k, err
}

// ListAPIKeys returns a user's keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = ? ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []*domain.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// TouchAPIKey records a successful use of the key.
func (s *Store) TouchAPIKey(ctx context.Context, keyID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, formatTime(at), keyID)
	return err
}

// DeleteAPIKey revokes one of the user's keys.
func (s *Store) DeleteAPIKey(ctx context.Context, userID, keyID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE id = ? AND user_id = ?`, keyID, userID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
