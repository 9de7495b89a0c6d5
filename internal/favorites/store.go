// Package favorites persists a user's bookmarked items: a capped, newest-first
// list held in a local JSON document and optionally mirrored to the sync
// backend. Every write lands locally first, so a read immediately after a
// write observes it regardless of what the remote side is doing.
package favorites

import (
	"context"
	"errors"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

// Cap is the per-user bookmark limit. The 51st add is rejected; nothing is
// ever evicted automatically.
const Cap = 50

// ErrCapacity signals an add against a full list.
var ErrCapacity = errors.New("favorites list is full")

// Store is the favorites contract shared by the local, remote, and
// write-through variants. Add reports the durable audio ref the backing side
// settled on, which may differ from the one submitted when the backend
// rewrites inline bytes into a served URL.
type Store interface {
	List(ctx context.Context, userID string) ([]phrase.Favorite, error)
	Add(ctx context.Context, userID string, fav phrase.Favorite) (*phrase.AudioRef, error)
	Remove(ctx context.Context, userID, key string) (bool, error)
	Healthy(ctx context.Context) bool
}
