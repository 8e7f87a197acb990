// Package clock isolates wall time, randomness and timed suspension so the
// simulated runner and builder can be driven deterministically in tests.
package clock

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Clock 提供当前时间。
type Clock interface {
	Now() time.Time
}

// ClockFunc 将普通函数适配为 Clock。
type ClockFunc func() time.Time

// Now 实现 Clock 接口。
func (f ClockFunc) Now() time.Time { return f() }

// System 返回基于 time.Now 的时钟。
func System() Clock { return ClockFunc(time.Now) }

// Random 产生 [0,1) 区间的随机数。
type Random interface {
	Float64() float64
}

// lockedRandom 让 *rand.Rand 可以被多个协程共享。
type lockedRandom struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (r *lockedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// NewRandom 返回由种子决定的伪随机源。
func NewRandom(seed uint64) Random {
	return &lockedRandom{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// DefaultRandom 返回使用全局随机数的实现。
func DefaultRandom() Random { return globalRandom{} }

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// Between 返回 [min, max) 内的随机时长。
func Between(r Random, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Float64()*float64(hi-lo))
}

// FixedRandom 每次返回相同的值，测试时用于固定时长。
type FixedRandom float64

// Float64 实现 Random 接口。
func (f FixedRandom) Float64() float64 { return float64(f) }
