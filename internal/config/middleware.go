package config

import "time"

// CacheConfig controls the Redis response cache in front of the public
// catalog. When Enabled is false or Redis is unreachable caching is skipped.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // route | method_route | route_query | method_route_query
	Prefix       string
	MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "nesavent:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// RateLimitConfig parameterises the Redis token bucket. AnonCapacity is the
// bucket size for callers without a valid access token.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	AnonCapacity   int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // area | route | global
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		AnonCapacity:   envInt("RATE_LIMIT_ANON_CAPACITY", 20),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "area"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "nesavent:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	return rl.normalized()
}

func (rl RateLimitConfig) normalized() RateLimitConfig {
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.AnonCapacity < 1 || rl.AnonCapacity > rl.Capacity {
		rl.AnonCapacity = rl.Capacity
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl
}
