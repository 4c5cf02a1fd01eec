package jobs

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rshade/mediabatch/internal/engine/batch"
	"github.com/rshade/mediabatch/internal/engine/cache"
)

// KeyFunc derives a cache key for an input. ok is false when the input should
// bypass the cache.
type KeyFunc[In any] func(input In) (key string, ok bool)

// Cached wraps invoke with a read-through, write-through result cache. A valid hit
// returns the stored result without calling invoke; only successes are stored.
// Cache failures are logged and never fail the task; an unreadable entry is
// deleted so the fresh result replaces it. A nil or disabled store
// returns invoke unchanged.
func Cached[In, Out any](
	store *cache.FileStore,
	kind Kind,
	keyFor KeyFunc[In],
	invoke batch.InvokeFunc[In, Out],
	logger zerolog.Logger,
) batch.InvokeFunc[In, Out] {
	if store == nil || !store.IsEnabled() || keyFor == nil {
		return invoke
	}

	return func(ctx context.Context, call batch.Call[In]) (Out, error) {
		key, ok := keyFor(call.Input)
		if !ok {
			return invoke(ctx, call)
		}

		hit, found, err := cache.GetJSON[Out](store, key)
		if err != nil {
			logger.Warn().Ctx(ctx).Err(err).Str("task_id", call.TaskID).Msg("cache read failed; dropping entry")
			if delErr := store.Delete(key); delErr != nil {
				logger.Warn().Ctx(ctx).Err(delErr).Str("task_id", call.TaskID).Msg("cache delete failed")
			}
		}
		if found {
			logger.Debug().Ctx(ctx).Str("task_id", call.TaskID).Msg("cache hit")
			return hit, nil
		}

		out, err := invoke(ctx, call)
		if err != nil {
			return out, err
		}
		if setErr := cache.SetJSON(store, key, string(kind), out); setErr != nil {
			logger.Warn().Ctx(ctx).Err(setErr).Str("task_id", call.TaskID).Msg("cache write failed")
		}
		return out, nil
	}
}
