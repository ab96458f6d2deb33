package repos

import (
	"time"

	"github.com/fabricsync/fabricsync/pkg/store"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// RetryStateRepo persists auth retry state keyed by target URL, with a TTL so
// stale lockout protection ages out between rapid CLI invocations.
type RetryStateRepo struct {
	base *BaseRepo[types.AuthRetryState]
	ttl  time.Duration
}

func NewRetryStateRepo(core store.Store, ttl time.Duration) *RetryStateRepo {
	return &RetryStateRepo{
		base: NewBaseRepo[types.AuthRetryState](core, store.BucketRetryState),
		ttl:  ttl,
	}
}

// Load returns the persisted state for target, or nil when absent or expired.
func (r *RetryStateRepo) Load(target string) (*types.AuthRetryState, error) {
	return r.base.Get(target)
}

// Save persists the state under the configured retry window TTL.
func (r *RetryStateRepo) Save(state *types.AuthRetryState) error {
	return r.base.PutWithTTL(state.Target, state, r.ttl)
}

// Clear removes the persisted state for target.
func (r *RetryStateRepo) Clear(target string) error {
	return r.base.Delete(target)
}
