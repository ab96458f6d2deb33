package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// CacheStore persists endpoint capability records as one JSON file per
// controller identity.
type CacheStore struct {
	dir    string
	logger log.Logger
}

// NewCacheStore creates a cache store rooted at dir.
func NewCacheStore(dir string, logger log.Logger) *CacheStore {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &CacheStore{dir: dir, logger: logger.WithComponent("endpoint-cache")}
}

// cacheKey derives the file key from the controller hostname.
func cacheKey(controller string) string {
	addr := controller
	if !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}
	host := controller
	if u, err := url.Parse(addr); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.ToLower(host)

	var b strings.Builder
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (s *CacheStore) pathFor(controller string) string {
	return filepath.Join(s.dir, fmt.Sprintf("endpoints_%s.json", cacheKey(controller)))
}

// Load returns the cached record for a controller, or nil when no cache file
// exists. Validity is the caller's decision via EndpointCache.IsValid.
func (s *CacheStore) Load(controller string) (*types.EndpointCache, error) {
	data, err := os.ReadFile(s.pathFor(controller))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint cache: %w", err)
	}

	var cache types.EndpointCache
	if err := json.Unmarshal(data, &cache); err != nil {
		// a corrupt cache file is treated as absent and rediscovered
		s.logger.Warn("Discarding corrupt endpoint cache file",
			log.Str("controller", controller), log.Err(err))
		return nil, nil
	}
	return &cache, nil
}

// Save persists the record for its controller identity.
func (s *CacheStore) Save(cache *types.EndpointCache) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode endpoint cache: %w", err)
	}

	path := s.pathFor(cache.Metadata.Hostname)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write endpoint cache: %w", err)
	}

	s.logger.Debug("Endpoint cache saved",
		log.Str("path", path),
		log.Int("valid", cache.Statistics.Valid),
		log.Time("expires_at", cache.Metadata.ExpiresAt))
	return nil
}

// Clear removes the cache file for a controller. Clearing an absent cache is
// not an error.
func (s *CacheStore) Clear(controller string) error {
	err := os.Remove(s.pathFor(controller))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
