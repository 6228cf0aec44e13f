package station

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"petrolstation/internal/fuel"
)

// lockedRand is a rand.Rand shared by the arrival and session routines
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

// randomTime returns a uniformly distributed delay in [min, max]
func (r *lockedRand) randomTime(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + time.Duration(r.rnd.Int63n(int64(max-min)+1))
}

// between returns a uniformly distributed integer in [min, max]
func (r *lockedRand) between(min, max int) int {
	if max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + r.rnd.Intn(max-min+1)
}

// genFuelKind returns a random fuel kind
func (r *lockedRand) genFuelKind() fuel.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fuel.Kinds[r.rnd.Intn(len(fuel.Kinds))]
}

// doSleeping sleeps for delay or until ctx is done
func doSleeping(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
