package favorites

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

// SyncedStore is the write-through pair: the local file is the source of
// truth for reads, and every write mirrors to the backend best-effort. A
// remote failure degrades silently; the caller cannot tell which path served
// it.
type SyncedStore struct {
	local  *FileStore
	remote *RemoteStore
	log    *logrus.Logger
}

// New selects the session's storage mode with a single health probe: a
// reachable backend yields the write-through pair, anything else stays
// local-only. The choice holds for the whole session so flaky connectivity
// cannot flap the mode mid-use.
func New(ctx context.Context, local *FileStore, remote *RemoteStore, log *logrus.Logger) Store {
	if remote != nil && remote.Healthy(ctx) {
		log.Info("favorites: remote-backed mode")
		return &SyncedStore{local: local, remote: remote, log: log}
	}
	log.Info("favorites: local-only mode")
	return local
}

// List reads the local copy.
func (s *SyncedStore) List(ctx context.Context, userID string) ([]phrase.Favorite, error) {
	return s.local.List(ctx, userID)
}

// Add lands the favorite locally first, then mirrors it out. When the backend
// rewrites inline audio into a durable URL, the local copy is updated in
// place to carry that ref.
func (s *SyncedStore) Add(ctx context.Context, userID string, fav phrase.Favorite) (*phrase.AudioRef, error) {
	ref, err := s.local.Add(ctx, userID, fav)
	if err != nil {
		return nil, err
	}

	remoteRef, err := s.remote.Add(ctx, userID, fav)
	if err != nil {
		s.log.WithError(err).Debug("favorites: remote add failed, keeping local copy")
		return ref, nil
	}
	if remoteRef != nil && remoteRef.URL != "" {
		fav.Audio = remoteRef
		if _, err := s.local.Add(ctx, userID, fav); err != nil {
			s.log.WithError(err).Debug("favorites: could not adopt durable audio ref")
			return ref, nil
		}
		return remoteRef, nil
	}
	return ref, nil
}

// Remove deletes locally and mirrors the delete out best-effort.
func (s *SyncedStore) Remove(ctx context.Context, userID, key string) (bool, error) {
	fav, found, err := s.local.Get(userID, key)
	if err != nil {
		return false, err
	}
	removed, err := s.local.Remove(ctx, userID, key)
	if err != nil {
		return false, err
	}
	if found {
		if _, err := s.remote.RemoveItem(ctx, userID, fav.Text, fav.Language); err != nil {
			s.log.WithError(err).Debug("favorites: remote remove failed")
		}
	}
	return removed, nil
}

// Healthy reflects the startup decision; the pair exists only because the
// probe passed.
func (s *SyncedStore) Healthy(ctx context.Context) bool {
	return true
}

// Sync reconciles the local list through the backend's server-wins merge,
// backfills pronunciation audio the merge left behind, and rewrites the local
// document with the result.
func (s *SyncedStore) Sync(ctx context.Context, userID string) ([]phrase.Favorite, error) {
	local, err := s.local.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged, err := s.remote.Sync(ctx, userID, local)
	if err != nil {
		return nil, err
	}
	merged, err = s.backfillAudio(ctx, userID, local, merged)
	if err != nil {
		return nil, err
	}
	if err := s.local.Replace(userID, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

const backfillWorkers = 4

// backfillAudio re-pushes favorites whose merged row carries no audio while
// the pre-merge local copy still holds inline bytes. The server wins on the
// row itself, but audio it never received is not a conflict. Uploads run in
// parallel; a failed upload keeps the inline bytes locally for next time.
func (s *SyncedStore) backfillAudio(ctx context.Context, userID string, local, merged []phrase.Favorite) ([]phrase.Favorite, error) {
	inline := make(map[string]*phrase.AudioRef)
	for _, fav := range local {
		if fav.Audio != nil && len(fav.Audio.Data) > 0 {
			inline[fav.Key] = fav.Audio
		}
	}
	if len(inline) == 0 {
		return merged, nil
	}

	out := make([]phrase.Favorite, len(merged))
	copy(out, merged)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillWorkers)
	for i, fav := range merged {
		ref, ok := inline[fav.Key]
		if !ok || !fav.Audio.Empty() {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			push := fav
			push.Audio = ref
			remoteRef, err := s.remote.Add(ctx, userID, push)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || remoteRef.Empty() {
				s.log.WithError(err).WithField("key", fav.Key).Debug("favorites: audio backfill failed")
				out[i].Audio = ref
				return nil
			}
			out[i].Audio = remoteRef
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
