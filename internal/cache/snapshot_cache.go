// Package cache implements the chunked key-value snapshot cache (C11):
// a SQLite-backed domain.SnapshotCache storing base64-encoded msgpack
// payloads, splitting oversized entries into sequential chunks.
package cache

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/domain"
)

var _ domain.SnapshotCache = (*SnapshotCache)(nil)

// chunkThreshold is the approximate payload size, in bytes of the
// base64-encoded text, above which an entry is split into chunks.
const chunkThreshold = 900 * 1024

// DefaultTTL is applied by callers that don't have a more specific
// expiry policy for a snapshot.
const DefaultTTL = time.Hour

// chunkMeta marks a key as split across N sequential chunk rows.
type chunkMeta struct {
	Chunked bool `json:"chunked"`
	Chunks  int  `json:"chunks"`
}

// SnapshotCache stores base64-encoded payloads in a dedicated SQLite
// table, splitting large entries into sequential chunks.
type SnapshotCache struct {
	db  *sql.DB
	log zerolog.Logger
}

// New builds a SnapshotCache over db, creating its table if absent.
func New(db *sql.DB, log zerolog.Logger) (*SnapshotCache, error) {
	c := &SnapshotCache{db: db, log: log.With().Str("component", "cache").Logger()}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return c, nil
}

func chunkKey(key string, i int) string {
	return fmt.Sprintf("%s:chunk:%d", key, i)
}

// Set stores payload under key with the given TTL, base64-encoding it
// and splitting into chunkKey(key, i) rows when it exceeds
// chunkThreshold. Any previously-chunked metadata for key is cleared
// first so a shrinking payload doesn't leave stale chunk rows behind.
func (c *SnapshotCache) Set(key string, payload []byte, ttl time.Duration) error {
	if err := c.deleteChunks(key); err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	expiresAt := time.Now().Add(ttl).Unix()

	if len(encoded) <= chunkThreshold {
		return c.put(key, encoded, expiresAt)
	}

	var chunks []string
	for i := 0; i < len(encoded); i += chunkThreshold {
		end := i + chunkThreshold
		if end > len(encoded) {
			end = len(encoded)
		}
		chunks = append(chunks, encoded[i:end])
	}
	for i, chunk := range chunks {
		if err := c.put(chunkKey(key, i), chunk, expiresAt); err != nil {
			return err
		}
	}
	meta, err := json.Marshal(chunkMeta{Chunked: true, Chunks: len(chunks)})
	if err != nil {
		return fmt.Errorf("marshal chunk metadata: %w", err)
	}
	return c.put(key, string(meta), expiresAt)
}

func (c *SnapshotCache) put(key, value string, expiresAt int64) error {
	_, err := c.db.Exec(`
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("put cache entry %s: %w", key, err)
	}
	return nil
}

// Get retrieves and decodes the payload stored under key, reassembling
// chunks in order when the entry was split. Expired or missing entries
// return domain.ErrMissingData.
func (c *SnapshotCache) Get(key string) ([]byte, error) {
	value, expiresAt, ok, err := c.fetch(key)
	if err != nil {
		return nil, err
	}
	if !ok || time.Now().Unix() >= expiresAt {
		return nil, domain.NewError(domain.ErrMissingData, fmt.Sprintf("cache key %s not found", key), nil)
	}

	var meta chunkMeta
	if err := json.Unmarshal([]byte(value), &meta); err == nil && meta.Chunked {
		var encoded string
		for i := 0; i < meta.Chunks; i++ {
			chunkValue, _, chunkOK, err := c.fetch(chunkKey(key, i))
			if err != nil {
				return nil, err
			}
			if !chunkOK {
				return nil, domain.NewError(domain.ErrMissingData, fmt.Sprintf("cache key %s missing chunk %d", key, i), nil)
			}
			encoded += chunkValue
		}
		return base64.StdEncoding.DecodeString(encoded)
	}

	return base64.StdEncoding.DecodeString(value)
}

func (c *SnapshotCache) fetch(key string) (value string, expiresAt int64, ok bool, err error) {
	row := c.db.QueryRow(`SELECT value, expires_at FROM cache WHERE key = ?`, key)
	err = row.Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("fetch cache entry %s: %w", key, err)
	}
	return value, expiresAt, true, nil
}

// Delete removes key and any chunk rows that belong to it.
func (c *SnapshotCache) Delete(key string) error {
	return c.deleteChunks(key)
}

func (c *SnapshotCache) deleteChunks(key string) error {
	row := c.db.QueryRow(`SELECT value FROM cache WHERE key = ?`, key)
	var value string
	if err := row.Scan(&value); err == nil {
		var meta chunkMeta
		if json.Unmarshal([]byte(value), &meta) == nil && meta.Chunked {
			for i := 0; i < meta.Chunks; i++ {
				if _, err := c.db.Exec(`DELETE FROM cache WHERE key = ?`, chunkKey(key, i)); err != nil {
					return fmt.Errorf("delete chunk %d for %s: %w", i, key, err)
				}
			}
		}
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("inspect cache entry %s: %w", key, err)
	}

	if _, err := c.db.Exec(`DELETE FROM cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry %s: %w", key, err)
	}
	return nil
}
