package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/phrase"
	"github.com/chirag6451/idiom-master/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	favs, err := s.db.ListFavorites(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).Error("list favorites failed")
		writeError(w, http.StatusInternalServerError, "listing favorites failed")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Favorites: absolutized(r, favs)})
}

type listResponse struct {
	Favorites []phrase.Favorite `json:"favorites"`
}

type addRequest struct {
	UserID   string          `json:"userId"`
	Favorite phrase.Favorite `json:"favorite"`
}

type addResponse struct {
	Accepted bool             `json:"accepted"`
	AudioRef *phrase.AudioRef `json:"audioRef,omitempty"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Favorite.Text) == "" {
		writeError(w, http.StatusBadRequest, "userId and favorite text are required")
		return
	}
	fav := req.Favorite
	if fav.Key == "" {
		fav.Key = phrase.FavoriteKey(req.UserID, fav.Text, fav.Language, fav.Kind)
	}

	ref, err := s.db.AddFavorite(r.Context(), req.UserID, fav)
	if errors.Is(err, favorites.ErrCapacity) {
		writeError(w, http.StatusConflict, "capacity exceeded")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("add favorite failed")
		writeError(w, http.StatusInternalServerError, "storing the favorite failed")
		return
	}
	writeJSON(w, http.StatusOK, addResponse{Accepted: true, AudioRef: absoluteRef(r, ref)})
}

type removeResponse struct {
	Removed bool `json:"removed"`
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	text := r.PathValue("text")
	language := r.PathValue("language")

	removed, err := s.db.RemoveItem(r.Context(), userID, text, language)
	if err != nil {
		s.log.WithError(err).Error("remove favorite failed")
		writeError(w, http.StatusInternalServerError, "removing the favorite failed")
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{Removed: removed})
}

type syncRequest struct {
	UserID    string            `json:"userId"`
	Favorites []phrase.Favorite `json:"favorites"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	merged, err := s.db.SyncFavorites(r.Context(), req.UserID, req.Favorites)
	if err != nil {
		s.log.WithError(err).Error("sync favorites failed")
		writeError(w, http.StatusInternalServerError, "syncing favorites failed")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Favorites: absolutized(r, merged)})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, _, _, err := s.db.Audio(r.Context(), key)
	if errors.Is(err, storage.ErrNoAudio) {
		writeError(w, http.StatusNotFound, "no audio for key")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("audio lookup failed")
		writeError(w, http.StatusInternalServerError, "loading audio failed")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// absoluteRef rewrites a served-path ref into a URL the client can fetch.
// Refs the client minted elsewhere pass through untouched.
func absoluteRef(r *http.Request, ref *phrase.AudioRef) *phrase.AudioRef {
	if ref == nil || !strings.HasPrefix(ref.URL, "/") {
		return ref
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	out := *ref
	out.URL = scheme + "://" + r.Host + ref.URL
	return &out
}

func absolutized(r *http.Request, favs []phrase.Favorite) []phrase.Favorite {
	out := make([]phrase.Favorite, len(favs))
	for i, fav := range favs {
		fav.Audio = absoluteRef(r, fav.Audio)
		out[i] = fav
	}
	return out
}
