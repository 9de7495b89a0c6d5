package favorites

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

const healthTimeout = 3 * time.Second

// RemoteStore talks to the favorites-sync backend. Transient failures retry
// with backoff; a 409 maps to ErrCapacity.
type RemoteStore struct {
	base     string
	username string
	password string
	client   *retryablehttp.Client
}

// NewRemoteStore points at a backend base URL such as http://localhost:8787.
// Credentials are optional; the backend may run open on a trusted network.
func NewRemoteStore(base, username, password string) *RemoteStore {
	client := retryablehttp.NewClient()
	client.Logger = stdlog.New(io.Discard, "", 0)
	client.RetryMax = 3
	return &RemoteStore{
		base:     strings.TrimRight(base, "/"),
		username: username,
		password: password,
		client:   client,
	}
}

func (r *RemoteStore) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, r.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.username != "" {
		req.SetBasicAuth(r.username, r.password)
	}
	return r.client.Do(req)
}

// Healthy probes GET /health once. The session picks its storage mode off
// this answer at startup and never flips mid-session.
func (r *RemoteStore) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	resp, err := r.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// List fetches the user's favorites, newest first.
func (r *RemoteStore) List(ctx context.Context, userID string) ([]phrase.Favorite, error) {
	resp, err := r.do(ctx, http.MethodGet, "/favorites/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list favorites: %s", respError(resp))
	}
	var payload struct {
		Favorites []phrase.Favorite `json:"favorites"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}
	return payload.Favorites, nil
}

// Add stores a favorite remotely. The backend keeps any inline audio bytes as
// a blob and answers with a durable URL ref.
func (r *RemoteStore) Add(ctx context.Context, userID string, fav phrase.Favorite) (*phrase.AudioRef, error) {
	body := struct {
		UserID   string          `json:"userId"`
		Favorite phrase.Favorite `json:"favorite"`
	}{UserID: userID, Favorite: fav}

	resp, err := r.do(ctx, http.MethodPost, "/favorites", body)
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, ErrCapacity
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("add favorite: %s", respError(resp))
	}
	var payload struct {
		Accepted bool             `json:"accepted"`
		AudioRef *phrase.AudioRef `json:"audioRef"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode add response: %w", err)
	}
	if !payload.Accepted {
		return nil, fmt.Errorf("backend rejected the favorite")
	}
	return payload.AudioRef, nil
}

// RemoveItem deletes by the backend's natural (text, language) route. The
// route carries no kind segment, so every kind saved for the pair goes away.
func (r *RemoteStore) RemoveItem(ctx context.Context, userID, text, language string) (bool, error) {
	path := "/favorites/" + url.PathEscape(userID) + "/" + url.PathEscape(text) + "/" + url.PathEscape(language)
	resp, err := r.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("remove favorite: %s", respError(resp))
	}
	var payload struct {
		Removed bool `json:"removed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("decode remove response: %w", err)
	}
	return payload.Removed, nil
}

// Remove deletes by key. The HTTP API is keyed by (text, language), so this
// resolves the key through a list first.
func (r *RemoteStore) Remove(ctx context.Context, userID, key string) (bool, error) {
	favorites, err := r.List(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, fav := range favorites {
		if fav.Key == key {
			return r.RemoveItem(ctx, userID, fav.Text, fav.Language)
		}
	}
	return false, nil
}

// Sync submits the local list and returns the backend's merged view. The
// server wins on key collisions; everything else unions additively.
func (r *RemoteStore) Sync(ctx context.Context, userID string, local []phrase.Favorite) ([]phrase.Favorite, error) {
	body := struct {
		UserID    string            `json:"userId"`
		Favorites []phrase.Favorite `json:"favorites"`
	}{UserID: userID, Favorites: local}

	resp, err := r.do(ctx, http.MethodPost, "/favorites/sync", body)
	if err != nil {
		return nil, fmt.Errorf("sync favorites: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sync favorites: %s", respError(resp))
	}
	var payload struct {
		Favorites []phrase.Favorite `json:"favorites"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	return payload.Favorites, nil
}

func respError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Sprintf("%s (%s)", resp.Status, payload.Error)
	}
	return resp.Status
}
