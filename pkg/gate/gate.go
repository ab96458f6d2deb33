package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// Source values for a gate result, recording how connectivity was validated.
const (
	SourceReused    = "reused"
	SourceCache     = "cache"
	SourceDiscovery = "discovery"
)

// DiscoveryService runs a fresh endpoint discovery against a controller.
type DiscoveryService interface {
	Discover(ctx context.Context, controller string) (*types.EndpointCache, error)
}

// CacheLoader loads a previously persisted endpoint cache.
type CacheLoader interface {
	Load(controller string) (*types.EndpointCache, error)
}

// Request describes one gate evaluation.
type Request struct {
	Controller        string
	RequiredEndpoints []string
	// MinSuccessful is the valid-endpoint floor for reusing a cache.
	// Zero means the default of 5.
	MinSuccessful int
	// MaxCacheAge bounds how old a cached record may be. Zero means 24h.
	MaxCacheAge time.Duration
	// AllowLimited lets the caller proceed when required endpoints are
	// missing, with LimitedFunctionality flagged on the result.
	AllowLimited bool
	// Prior is a validated result from earlier in the same process. When it
	// matches the controller identity the gate reuses it without touching
	// the network.
	Prior *Result
}

// Result is the gate's verdict. CanProceed is the only field callers need to
// act on; the rest explains how the verdict was reached.
type Result struct {
	Success              bool
	CanProceed           bool
	LimitedFunctionality bool
	MissingEndpoints     []string
	Cache                *types.EndpointCache
	Source               string
	Controller           string
}

// Gate validates controller connectivity and endpoint availability before any
// mutating operation runs.
type Gate struct {
	discovery DiscoveryService
	cache     CacheLoader
	logger    log.Logger
	now       func() time.Time
}

// New creates a gate. The cache loader may be nil, which forces discovery.
func New(discovery DiscoveryService, cache CacheLoader, logger log.Logger) *Gate {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Gate{
		discovery: discovery,
		cache:     cache,
		logger:    logger.WithComponent("gate"),
		now:       time.Now,
	}
}

// Ensure evaluates the prerequisite gate: reuse a prior result, fall back to
// a valid cache, and only then run discovery. A failed gate means the caller
// must abort before issuing any mutating call.
func (g *Gate) Ensure(ctx context.Context, req Request) (*Result, error) {
	minSuccessful := req.MinSuccessful
	if minSuccessful <= 0 {
		minSuccessful = 5
	}
	maxAge := req.MaxCacheAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	if prior := req.Prior; prior != nil && prior.Success && prior.Controller == req.Controller {
		g.logger.Debug("Reusing prior gate result", log.Str("controller", req.Controller))
		result := g.check(prior.Cache, req, SourceReused)
		return result, nil
	}

	if g.cache != nil {
		cached, err := g.cache.Load(req.Controller)
		if err != nil {
			return nil, err
		}
		if cached != nil && g.cacheUsable(cached, minSuccessful, maxAge) {
			g.logger.Info("Using cached endpoint discovery",
				log.Str("controller", req.Controller),
				log.Duration("ttl_remaining", cached.TTLRemaining(g.now())))
			return g.check(cached, req, SourceCache), nil
		}
	}

	discovered, err := g.discovery.Discover(ctx, req.Controller)
	if err != nil {
		return &Result{Controller: req.Controller, Source: SourceDiscovery, Cache: discovered},
			fmt.Errorf("prerequisite gate failed: %w", err)
	}
	return g.check(discovered, req, SourceDiscovery), nil
}

func (g *Gate) cacheUsable(cache *types.EndpointCache, minSuccessful int, maxAge time.Duration) bool {
	now := g.now()
	if !cache.IsValid(now) {
		return false
	}
	if now.Sub(cache.Metadata.LastValidated) > maxAge {
		return false
	}
	return cache.Statistics.Valid >= minSuccessful
}

// check verifies RequiredEndpoints membership against the validated cache.
// Missing endpoints fail the gate unless the caller opted into limited
// functionality.
func (g *Gate) check(cache *types.EndpointCache, req Request, source string) *Result {
	result := &Result{
		Success:    true,
		Cache:      cache,
		Source:     source,
		Controller: req.Controller,
	}

	for _, path := range req.RequiredEndpoints {
		if cache == nil || !cache.HasValidEndpoint(path) {
			result.MissingEndpoints = append(result.MissingEndpoints, path)
		}
	}

	switch {
	case len(result.MissingEndpoints) == 0:
		result.CanProceed = true
	case req.AllowLimited:
		result.CanProceed = true
		result.LimitedFunctionality = true
		g.logger.Warn("Proceeding with limited functionality",
			log.Str("controller", req.Controller),
			log.Int("missing_endpoints", len(result.MissingEndpoints)))
	default:
		result.Success = false
		g.logger.Error("Required endpoints unavailable",
			log.Str("controller", req.Controller),
			log.Any("missing", result.MissingEndpoints))
	}
	return result
}
