package station

import (
	"fmt"
	"sync"

	"petrolstation/internal/fuel"
)

// Inventory holds the fuel stocks and the replenishment claim. Every read
// and write of either happens under the same mutex, so a dispatcher probe can
// never race a refill and two probes can never both claim a tanker.
type Inventory struct {
	mu       sync.Mutex
	capacity int
	levels   map[fuel.Kind]int
	enRoute  bool
}

// NewInventory creates tanks with a shared capacity and initial levels.
func NewInventory(capacity int, levels map[fuel.Kind]int) *Inventory {
	inv := &Inventory{
		capacity: capacity,
		levels:   make(map[fuel.Kind]int, len(fuel.Kinds)),
	}
	for _, k := range fuel.Kinds {
		inv.levels[k] = levels[k]
		inv.check(k)
	}
	return inv
}

// Capacity is the ceiling shared by every kind.
func (inv *Inventory) Capacity() int {
	return inv.capacity
}

// LevelOf returns the current level of kind k.
func (inv *Inventory) LevelOf(k fuel.Kind) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.levels[k]
}

// Levels returns a copy of every level.
func (inv *Inventory) Levels() map[fuel.Kind]int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make(map[fuel.Kind]int, len(inv.levels))
	for k, v := range inv.levels {
		out[k] = v
	}
	return out
}

// Withdraw takes min(requested, level) liters of k and returns the amount
// taken. It never waits: a short tank yields a smaller sale.
func (inv *Inventory) Withdraw(k fuel.Kind, requested int) int {
	if requested < 0 {
		panic(fmt.Sprintf("inventory: negative withdrawal of %d L %s", requested, k))
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	actual := min(requested, inv.levels[k])
	inv.levels[k] -= actual
	inv.check(k)
	return actual
}

// RefillAll sets every kind to capacity.
func (inv *Inventory) RefillAll() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, k := range fuel.Kinds {
		inv.levels[k] = inv.capacity
	}
}

// Probe reads the level of k and, when it is below low and no tanker is
// active, claims the replenishment slot in the same critical section.
func (inv *Inventory) Probe(k fuel.Kind, low int) (level int, claimed bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	level = inv.levels[k]
	if level < low && !inv.enRoute {
		inv.enRoute = true
		claimed = true
	}
	return level, claimed
}

// Claim takes the replenishment slot regardless of levels. It reports false
// when a tanker is already active.
func (inv *Inventory) Claim() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.enRoute {
		return false
	}
	inv.enRoute = true
	return true
}

// Release clears the replenishment slot.
func (inv *Inventory) Release() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if !inv.enRoute {
		panic("inventory: releasing a replenishment claim that is not held")
	}
	inv.enRoute = false
}

// Replenishing reports whether a tanker holds the claim.
func (inv *Inventory) Replenishing() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.enRoute
}

// check panics when a level leaves [0, capacity]; callers hold mu
func (inv *Inventory) check(k fuel.Kind) {
	if lvl := inv.levels[k]; lvl < 0 || lvl > inv.capacity {
		panic(fmt.Sprintf("inventory: %s level %d outside [0, %d]", k, lvl, inv.capacity))
	}
}
