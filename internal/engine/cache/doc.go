// Package cache provides a file-based result cache with TTL expiration.
//
// Batch jobs use it to short-circuit remote calls whose result is already known,
// such as scene detection over a file that has not changed since the last run.
// Key features:
//   - One JSON file per entry under ~/.mediabatch/cache/ with atomic writes
//   - Configurable TTL via config file or MEDIABATCH_CACHE_* environment variables
//   - Expiration on read, bulk cleanup, and oldest-first eviction above a size cap
//   - SHA-256 keys built from the job kind, the input and its parameters
package cache
