package audio

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheEnvVar   = "IDIOM_MASTER_CACHE_DIR"
	cacheSubdir   = "idiom-master/audio"
	cacheTTL      = 30 * 24 * time.Hour
	partialSuffix = ".part"
	metaSuffix    = ".meta"

	cacheHTTPTimeout = 30 * time.Second
)

// Cache keeps remote pronunciation audio on disk so favorited items replay
// offline. Entries revalidate with conditional requests after the TTL; a
// failed refresh serves the stale copy rather than nothing.
type Cache struct {
	dir    string
	client *http.Client
}

type cacheMeta struct {
	Version      int       `json:"version"`
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

// NewCache opens (and creates) the on-disk cache. An empty dir falls back to
// the env override, then the user cache directory.
func NewCache(dir string, client *http.Client) (*Cache, error) {
	if dir == "" {
		dir = os.Getenv(cacheEnvVar)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "idiom-master-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: cacheHTTPTimeout}
	}
	return &Cache{dir: dir, client: client}, nil
}

// Fetch returns the PCM bytes behind audioURL, downloading at most once per
// TTL window.
func (c *Cache) Fetch(ctx context.Context, audioURL string) ([]byte, error) {
	key := cacheKey(audioURL)
	dataPath, metaPath, partialPath := c.pathsFor(key)

	if info, err := os.Stat(dataPath); err == nil && time.Since(info.ModTime()) < cacheTTL && info.Size() > 0 {
		return os.ReadFile(dataPath)
	}

	meta, _ := readCacheMeta(metaPath)
	info, _ := os.Stat(dataPath)
	data, err := c.download(ctx, audioURL, dataPath, metaPath, partialPath, meta, info)
	if err == nil {
		return data, nil
	}
	if info != nil && info.Size() > 0 {
		return os.ReadFile(dataPath)
	}
	return nil, err
}

func (c *Cache) download(ctx context.Context, audioURL, dataPath, metaPath, partialPath string, meta cacheMeta, current os.FileInfo) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current != nil && current.Size() > 0 {
			meta.CachedAt = time.Now().UTC()
			writeCacheMeta(metaPath, meta)
			now := time.Now()
			os.Chtimes(dataPath, now, now)
			return os.ReadFile(dataPath)
		}
		return c.download(ctx, audioURL, dataPath, metaPath, partialPath, cacheMeta{}, nil)
	case http.StatusOK:
		return c.saveBody(resp, dataPath, metaPath, partialPath)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("audio download failed: %s (%s)", resp.Status, string(body))
	}
}

func (c *Cache) saveBody(resp *http.Response, dataPath, metaPath, partialPath string) ([]byte, error) {
	file, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(partialPath, dataPath); err != nil {
		return nil, err
	}

	meta := cacheMeta{
		Version:      1,
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(dataPath); err == nil {
		meta.Size = info.Size()
	}
	if err := writeCacheMeta(metaPath, meta); err != nil {
		return nil, err
	}
	return os.ReadFile(dataPath)
}

func (c *Cache) pathsFor(key string) (string, string, string) {
	return filepath.Join(c.dir, key+".pcm"),
		filepath.Join(c.dir, key+metaSuffix),
		filepath.Join(c.dir, key+partialSuffix)
}

func cacheKey(audioURL string) string {
	sum := sha1.Sum([]byte(audioURL))
	return hex.EncodeToString(sum[:])
}

func readCacheMeta(path string) (cacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheMeta{}, err
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeCacheMeta(path string, meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
