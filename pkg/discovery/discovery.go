package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fabricsync/fabricsync/pkg/api/client"
	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// Defaults for discovery behavior.
const (
	DefaultWorkers                    = 8
	DefaultProbeTimeout               = 15 * time.Second
	DefaultMinimumSuccessfulEndpoints = 5
	DefaultCacheTTL                   = 24 * time.Hour
)

// Options configures a Discoverer.
type Options struct {
	Workers      int
	ProbeTimeout time.Duration
	// MinimumSuccessfulEndpoints is the number of valid probes a discovery
	// run needs to count as a success.
	MinimumSuccessfulEndpoints int
	CacheTTL                   time.Duration
}

func (o *Options) withDefaults() Options {
	opts := Options{}
	if o != nil {
		opts = *o
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.MinimumSuccessfulEndpoints <= 0 {
		opts.MinimumSuccessfulEndpoints = DefaultMinimumSuccessfulEndpoints
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return opts
}

// Discoverer probes a controller's API catalog and persists the results.
type Discoverer struct {
	api    *client.Client
	cache  *CacheStore
	opts   Options
	logger log.Logger
}

// NewDiscoverer creates a discoverer over an authenticated client. The cache
// store may be nil when persistence is not wanted.
func NewDiscoverer(api *client.Client, cache *CacheStore, opts *Options, logger log.Logger) *Discoverer {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Discoverer{
		api:    api,
		cache:  cache,
		opts:   opts.withDefaults(),
		logger: logger.WithComponent("discovery"),
	}
}

// DetectRole probes the three role-specific paths in strict priority order:
// global manager, then local manager, then standalone. First success wins;
// the default is standalone.
func (d *Discoverer) DetectRole(ctx context.Context) types.ManagerRole {
	probes := []struct {
		path string
		role types.ManagerRole
	}{
		{globalManagerProbePath, types.RoleGlobalManager},
		{localManagerProbePath, types.RoleLocalManager},
		{standaloneProbePath, types.RoleStandalone},
	}

	for _, probe := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, d.opts.ProbeTimeout)
		resp, err := d.api.Get(probeCtx, probe.path)
		cancel()
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			d.logger.Info("Manager role detected",
				log.Str("role", string(probe.role)), log.Str("probe", probe.path))
			return probe.role
		}
	}

	d.logger.Info("Manager role defaulted", log.Str("role", string(types.RoleStandalone)))
	return types.RoleStandalone
}

// Discover probes the role-specific catalog, classifies every failure,
// persists the capability record with a 24h TTL and returns it. Discovery
// fails only when fewer than MinimumSuccessfulEndpoints probes succeed.
func (d *Discoverer) Discover(ctx context.Context, controller string) (*types.EndpointCache, error) {
	role := d.DetectRole(ctx)
	catalog := CatalogForRole(role)

	d.logger.Info("Probing endpoint catalog",
		log.Str("controller", controller),
		log.Str("role", string(role)),
		log.Int("endpoints", len(catalog)),
		log.Int("workers", d.opts.Workers))

	records := make([]types.EndpointRecord, len(catalog))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for i, entry := range catalog {
		i, entry := i, entry
		g.Go(func() error {
			records[i] = d.probe(gctx, entry, role)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cache := d.buildCache(controller, role, records)

	if cache.Statistics.Valid < d.opts.MinimumSuccessfulEndpoints {
		return cache, fmt.Errorf("discovery failed: only %d of %d endpoints valid, need %d",
			cache.Statistics.Valid, cache.Statistics.Total, d.opts.MinimumSuccessfulEndpoints)
	}

	if d.cache != nil {
		if err := d.cache.Save(cache); err != nil {
			d.logger.Warn("Failed to persist endpoint cache", log.Err(err))
		}
	}
	return cache, nil
}

// probe tests one catalog path within the per-probe timeout. There is no
// automatic retry here beyond the client's auth recovery wrapper.
func (d *Discoverer) probe(ctx context.Context, entry CatalogEntry, role types.ManagerRole) types.EndpointRecord {
	record := types.EndpointRecord{
		Path:       entry.Path,
		Category:   entry.Category,
		Federation: entry.Federation,
		LastTested: time.Now().UTC(),
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.opts.ProbeTimeout)
	defer cancel()

	start := time.Now()
	resp, err := d.api.Get(probeCtx, entry.Path)
	record.ResponseTime = time.Since(start)

	if err != nil {
		record.Failure = ClassifyFailure(entry, role, 0, err)
		d.logProbeFailure(entry.Path, record.Failure)
		return record
	}
	record.ResponseTime = resp.Duration

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		record.Valid = true
		record.ItemCount = inferItemCount(resp.Body)
		record.HasData = record.ItemCount > 0
		d.logger.Debug("Endpoint probe succeeded",
			log.Str("path", entry.Path),
			log.Int("items", record.ItemCount),
			log.Duration("latency", record.ResponseTime))
		return record
	}

	record.Failure = ClassifyFailure(entry, role, resp.StatusCode, nil)
	d.logProbeFailure(entry.Path, record.Failure)
	return record
}

func (d *Discoverer) logProbeFailure(path string, failure *types.FailureClassification) {
	fields := []log.Field{
		log.Str("path", path),
		log.Str("classification", string(failure.Kind)),
		log.Int("status", failure.StatusCode),
		log.Str("detail", failure.Detail),
	}
	switch {
	case failure.Expected:
		d.logger.Info("Endpoint probe failed (expected)", fields...)
	case failure.Warning:
		d.logger.Warn("Endpoint probe failed (unclassified)", fields...)
	default:
		d.logger.Error("Endpoint probe failed", fields...)
	}
}

// inferItemCount derives an item count from the response shape: a results
// array, a result_count field, or 1 for a bare object.
func inferItemCount(body []byte) int {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0
	}

	if raw, ok := doc["results"]; ok {
		var results []json.RawMessage
		if err := json.Unmarshal(raw, &results); err == nil {
			return len(results)
		}
	}
	if raw, ok := doc["result_count"]; ok {
		var count int
		if err := json.Unmarshal(raw, &count); err == nil {
			return count
		}
	}
	if len(doc) > 0 {
		return 1
	}
	return 0
}

// buildCache assembles the persisted record: full probe results, derived
// path sets and aggregate statistics. Optimized endpoints are the active
// ones ordered fastest-first.
func (d *Discoverer) buildCache(controller string, role types.ManagerRole, records []types.EndpointRecord) *types.EndpointCache {
	now := time.Now().UTC()

	valid := make([]string, 0, len(records))
	active := make([]types.EndpointRecord, 0, len(records))
	for _, record := range records {
		if record.Valid {
			valid = append(valid, record.Path)
			if record.HasData {
				active = append(active, record)
			}
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].ResponseTime < active[j].ResponseTime
	})
	activePaths := make([]string, len(active))
	for i, record := range active {
		activePaths[i] = record.Path
	}

	return &types.EndpointCache{
		Metadata: types.CacheMetadata{
			Hostname:      hostnameOf(controller),
			ManagerRole:   role,
			LastValidated: now,
			ExpiresAt:     now.Add(d.opts.CacheTTL),
			Source:        "discovery",
		},
		Statistics: types.CacheStatistics{
			Total:     len(records),
			Valid:     len(valid),
			Active:    len(activePaths),
			Optimized: len(activePaths),
		},
		Endpoints: types.EndpointSets{
			All:       records,
			Valid:     valid,
			Active:    activePaths,
			Optimized: activePaths,
		},
	}
}

func hostnameOf(controller string) string {
	addr := controller
	if !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}
	if u, err := url.Parse(addr); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(controller)
}
