// Package throttle limits repeated failed logins per account.
//
// Failures are counted in a fixed window: the first failure for a key starts
// a cooldown period and further attempts are rejected with ErrRateLimited once
// the count reaches the configured maximum. A successful login resets the key.
// RedisLimiter shares counters across portal instances; MemoryLimiter keeps
// them in process.
package throttle
