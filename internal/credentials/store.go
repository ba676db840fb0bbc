package credentials

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/chacha20poly1305"
)

const tokenKeyPrefix = "connections:token:"

// Store resolves entities from the connections registry and tokens from the
// redis cache. Cached tokens are sealed at rest with XChaCha20-Poly1305.
type Store struct {
	pool  *pgxpool.Pool
	cache *redis.Client
	aead  cipher.AEAD
}

// NewStore builds a Store. key must be exactly 32 bytes.
func NewStore(pool *pgxpool.Pool, cache *redis.Client, key []byte) (*Store, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("credentials: cipher init: %w", err)
	}
	return &Store{pool: pool, cache: cache, aead: aead}, nil
}

// ListEntities returns connected entities in registration order.
func (s *Store) ListEntities(ctx context.Context) ([]Entity, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("credentials: store not initialised")
	}
	rows, err := s.pool.Query(ctx, `SELECT id, display_name, enabled FROM connections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("credentials: list entities: %w", err)
	}
	defer rows.Close()

	entities := make([]Entity, 0)
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Enabled); err != nil {
			return nil, fmt.Errorf("credentials: scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// Resolve fetches and unseals the cached token for an entity.
func (s *Store) Resolve(ctx context.Context, entityID int64) (Token, error) {
	if s == nil || s.cache == nil {
		return Token{}, errors.New("credentials: store not initialised")
	}
	sealed, err := s.cache.Get(ctx, tokenKey(entityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, fmt.Errorf("%w: entity %d", ErrEntityUnresolvable, entityID)
	}
	if err != nil {
		return Token{}, fmt.Errorf("credentials: read token: %w", err)
	}

	token, err := s.unseal(sealed)
	if err != nil {
		return Token{}, fmt.Errorf("credentials: unseal token for entity %d: %w", entityID, err)
	}
	return token, nil
}

// PutToken seals and caches a token. A zero ttl stores it without expiry.
func (s *Store) PutToken(ctx context.Context, entityID int64, token Token, ttl time.Duration) error {
	if s == nil || s.cache == nil {
		return errors.New("credentials: store not initialised")
	}
	sealed, err := s.seal(token)
	if err != nil {
		return fmt.Errorf("credentials: seal token: %w", err)
	}
	if err := s.cache.Set(ctx, tokenKey(entityID), sealed, ttl).Err(); err != nil {
		return fmt.Errorf("credentials: cache token: %w", err)
	}
	return nil
}

func (s *Store) seal(token Token) ([]byte, error) {
	plaintext, err := json.Marshal(token)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Store) unseal(sealed []byte) (Token, error) {
	if len(sealed) < s.aead.NonceSize() {
		return Token{}, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Token{}, err
	}
	var token Token
	if err := json.Unmarshal(plaintext, &token); err != nil {
		return Token{}, err
	}
	return token, nil
}

func tokenKey(entityID int64) string {
	return fmt.Sprintf("%s%d", tokenKeyPrefix, entityID)
}
