package api

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// refreshCoordinator guarantees at most one in-flight token revalidation
// process-wide. Concurrent 401s all await the same outcome rather than
// each issuing their own refresh call, preventing a thundering herd
// against the current-user endpoint.
type refreshCoordinator struct {
	group singleflight.Group
}

// refresh runs revalidate under single-flight and reports whether the
// session is still valid. The shared call is detached from the
// triggering request's cancellation: aborting one request must not
// cancel a refresh other callers are waiting on. The coordinator never
// clears credentials; that decision belongs to the session manager.
func (r *refreshCoordinator) refresh(ctx context.Context, revalidate func(context.Context) error) bool {
	valid, err, shared := r.group.Do("refresh", func() (any, error) {
		err := revalidate(context.WithoutCancel(ctx))
		if err != nil {
			log.Info().Err(err).Msg("token revalidation failed")
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return false
	}

	if shared {
		log.Debug().Msg("token revalidation joined in-flight refresh")
	}

	return valid.(bool)
}
