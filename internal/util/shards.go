package util

import (
	"math/bits"
	"runtime"
)

// MaxShards caps ShardCount.
const MaxShards = 256

// NextPow2 returns the smallest power of two >= x (1 for x <= 1), clamped
// to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	n := bits.Len64(x - 1)
	if n >= 64 {
		return 1 << 63
	}
	return 1 << n
}

// ShardCount normalizes a requested shard count: n <= 0 picks
// nextPow2(2*GOMAXPROCS), anything else is rounded up to a power of two.
// The result lies in [1..MaxShards].
func ShardCount(n int) int {
	if n <= 0 {
		n = 2 * max(runtime.GOMAXPROCS(0), 1)
	}
	return int(min(NextPow2(uint64(n)), MaxShards))
}

// ShardIndex maps a hash onto one of shards slots; shards must be a power
// of two.
func ShardIndex(hash uint64, shards int) int {
	return int(hash & uint64(shards-1))
}
