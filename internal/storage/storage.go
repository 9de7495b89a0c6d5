// Package storage persists the sync backend's favorites and pronunciation
// audio in a single SQLite file. The capacity rule and key semantics mirror
// the client-side store: (user, key) rows, newest first, fifty per user.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/phrase"
)

// ErrNoAudio marks a blob lookup for a key the store does not hold.
var ErrNoAudio = errors.New("no audio stored for key")

const audioPathPrefix = "/audio/"

type DB struct {
	sql *sql.DB
}

// Open creates or opens the backend database at path and ensures the schema
// exists. saved_at is kept as unix nanoseconds so newest-first ordering never
// depends on timestamp text formats.
func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS favorites (
  user_id     TEXT NOT NULL,
  key         TEXT NOT NULL,
  text        TEXT NOT NULL,
  language    TEXT NOT NULL,
  kind        TEXT NOT NULL,
  detail      TEXT NOT NULL,
  audio_url   TEXT NOT NULL DEFAULT '',
  sample_rate INTEGER NOT NULL DEFAULT 0,
  channels    INTEGER NOT NULL DEFAULT 0,
  saved_at    INTEGER NOT NULL,
  PRIMARY KEY (user_id, key)
);
CREATE INDEX IF NOT EXISTS idx_favorites_user ON favorites(user_id, saved_at DESC);
CREATE TABLE IF NOT EXISTS audio (
  key         TEXT PRIMARY KEY,
  data        BLOB NOT NULL,
  sample_rate INTEGER NOT NULL,
  channels    INTEGER NOT NULL,
  created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
	`); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// ListFavorites returns the user's favorites, newest first. Audio refs come
// back as URLs; inline bytes never leave the audio table on a list.
func (d *DB) ListFavorites(ctx context.Context, userID string) ([]phrase.Favorite, error) {
	return listFavoritesQuerier(ctx, d.sql, userID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listFavoritesQuerier(ctx context.Context, q querier, userID string) ([]phrase.Favorite, error) {
	rows, err := q.QueryContext(ctx, `
SELECT key, text, language, kind, detail, audio_url, sample_rate, channels, saved_at
FROM favorites WHERE user_id = ? ORDER BY saved_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []phrase.Favorite
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanFavorite(rows *sql.Rows) (phrase.Favorite, error) {
	var (
		fav            phrase.Favorite
		kind           string
		detailJSON     string
		audioURL       string
		rate, channels int
		savedAtNanos   int64
	)
	if err := rows.Scan(&fav.Key, &fav.Text, &fav.Language, &kind, &detailJSON, &audioURL, &rate, &channels, &savedAtNanos); err != nil {
		return phrase.Favorite{}, err
	}
	fav.Kind = phrase.Kind(kind)
	if err := json.Unmarshal([]byte(detailJSON), &fav.Detail); err != nil {
		return phrase.Favorite{}, fmt.Errorf("favorite %s detail corrupt: %w", fav.Key, err)
	}
	if audioURL != "" {
		fav.Audio = &phrase.AudioRef{URL: audioURL, SampleRate: rate, Channels: channels}
	}
	fav.SavedAt = time.Unix(0, savedAtNanos).UTC()
	return fav, nil
}

// AddFavorite upserts one favorite inside a transaction. A known key replaces
// in place even at capacity; a new key against a full list returns
// favorites.ErrCapacity. Inline audio bytes move into the audio table and the
// returned ref points at the served path instead.
func (d *DB) AddFavorite(ctx context.Context, userID string, fav phrase.Favorite) (ref *phrase.AudioRef, err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var others int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE user_id = ? AND key <> ?`, userID, fav.Key).Scan(&others); err != nil {
		return nil, err
	}
	if others >= favorites.Cap {
		err = favorites.ErrCapacity
		return nil, err
	}

	ref, err = upsertFavoriteTx(ctx, tx, userID, fav)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return ref, nil
}

// upsertFavoriteTx writes the row and settles the audio ref: inline bytes
// become a blob served under /audio/{key}, a submitted URL is kept verbatim,
// and an empty ref drops any blob left over from an earlier save.
func upsertFavoriteTx(ctx context.Context, tx *sql.Tx, userID string, fav phrase.Favorite) (*phrase.AudioRef, error) {
	detailJSON, err := json.Marshal(fav.Detail)
	if err != nil {
		return nil, err
	}

	var (
		audioURL       string
		rate, channels int
	)
	switch {
	case fav.Audio != nil && len(fav.Audio.Data) > 0:
		_, err = tx.ExecContext(ctx, `
INSERT INTO audio(key, data, sample_rate, channels) VALUES(?,?,?,?)
ON CONFLICT(key) DO UPDATE SET
  data = excluded.data,
  sample_rate = excluded.sample_rate,
  channels = excluded.channels`, fav.Key, fav.Audio.Data, fav.Audio.SampleRate, fav.Audio.Channels)
		if err != nil {
			return nil, err
		}
		audioURL = audioPathPrefix + fav.Key
		rate, channels = fav.Audio.SampleRate, fav.Audio.Channels
	case fav.Audio != nil && fav.Audio.URL != "":
		audioURL = fav.Audio.URL
		rate, channels = fav.Audio.SampleRate, fav.Audio.Channels
	default:
		if _, err = tx.ExecContext(ctx, `DELETE FROM audio WHERE key = ?`, fav.Key); err != nil {
			return nil, err
		}
	}

	savedAt := fav.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO favorites(user_id, key, text, language, kind, detail, audio_url, sample_rate, channels, saved_at)
VALUES(?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(user_id, key) DO UPDATE SET
  text = excluded.text,
  language = excluded.language,
  kind = excluded.kind,
  detail = excluded.detail,
  audio_url = excluded.audio_url,
  sample_rate = excluded.sample_rate,
  channels = excluded.channels,
  saved_at = excluded.saved_at`,
		userID, fav.Key, fav.Text, fav.Language, string(fav.Kind), string(detailJSON), audioURL, rate, channels, savedAt.UnixNano())
	if err != nil {
		return nil, err
	}

	if audioURL == "" {
		return nil, nil
	}
	return &phrase.AudioRef{URL: audioURL, SampleRate: rate, Channels: channels}, nil
}

// RemoveItem deletes every kind saved for the (text, language) pair, which is
// how the HTTP delete route is keyed. Blobs for the deleted rows go with them.
func (d *DB) RemoveItem(ctx context.Context, userID, text, language string) (removed bool, err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `SELECT key FROM favorites WHERE user_id = ? AND text = ? AND language = ?`, userID, text, language)
	if err != nil {
		return false, err
	}
	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			rows.Close()
			return false, err
		}
		keys = append(keys, key)
	}
	if err = rows.Close(); err != nil {
		return false, err
	}
	if len(keys) == 0 {
		err = tx.Commit()
		return false, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND text = ? AND language = ?`, userID, text, language); err != nil {
		return false, err
	}
	for _, key := range keys {
		if _, err = tx.ExecContext(ctx, `DELETE FROM audio WHERE key = ?`, key); err != nil {
			return false, err
		}
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveFavorite deletes a single row by key.
func (d *DB) RemoveFavorite(ctx context.Context, userID, key string) (removed bool, err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND key = ?`, userID, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM audio WHERE key = ?`, key); err != nil {
			return false, err
		}
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SyncFavorites merges a client's list into the server's in one transaction.
// Server rows win on key collisions; client-only keys are added until the cap
// is reached, then dropped. The merged, newest-first list comes back.
func (d *DB) SyncFavorites(ctx context.Context, userID string, client []phrase.Favorite) (merged []phrase.Favorite, err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `SELECT key FROM favorites WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool)
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			rows.Close()
			return nil, err
		}
		known[key] = true
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	for _, fav := range client {
		if known[fav.Key] || len(known) >= favorites.Cap {
			continue
		}
		if _, err = upsertFavoriteTx(ctx, tx, userID, fav); err != nil {
			return nil, err
		}
		known[fav.Key] = true
	}

	merged, err = listFavoritesQuerier(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Audio returns the stored PCM blob and its layout for a key.
func (d *DB) Audio(ctx context.Context, key string) ([]byte, int, int, error) {
	var (
		data           []byte
		rate, channels int
	)
	err := d.sql.QueryRowContext(ctx, `SELECT data, sample_rate, channels FROM audio WHERE key = ?`, key).Scan(&data, &rate, &channels)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, 0, ErrNoAudio
	}
	if err != nil {
		return nil, 0, 0, err
	}
	return data, rate, channels, nil
}
