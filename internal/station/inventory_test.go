package station

import (
	"sync"
	"testing"

	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"petrolstation/internal/fuel"
)

func TestInventory(t *testing.T) {
	spec.Run(t, "Inventory", testInventory, spec.Report(report.Terminal{}))
}

func testInventory(t *testing.T, describe spec.G, it spec.S) {
	var subject *Inventory

	it.Before(func() {
		subject = NewInventory(500, map[fuel.Kind]int{fuel.Gasoline: 200, fuel.Diesel: 200, fuel.LPG: 150})
	})

	describe("NewInventory()", func() {
		it("starts from the given levels", func() {
			assert.Equal(t, 200, subject.LevelOf(fuel.Gasoline))
			assert.Equal(t, 200, subject.LevelOf(fuel.Diesel))
			assert.Equal(t, 150, subject.LevelOf(fuel.LPG))
			assert.Equal(t, 500, subject.Capacity())
		})

		it("panics on a level above capacity", func() {
			assert.Panics(t, func() {
				NewInventory(100, map[fuel.Kind]int{fuel.Gasoline: 101})
			})
		})
	})

	describe("Withdraw()", func() {
		it("takes the full request when stock allows", func() {
			assert.Equal(t, 60, subject.Withdraw(fuel.Gasoline, 60))
			assert.Equal(t, 140, subject.LevelOf(fuel.Gasoline))
		})

		it("caps the sale to what is left", func() {
			assert.Equal(t, 150, subject.Withdraw(fuel.LPG, 400))
			assert.Equal(t, 0, subject.LevelOf(fuel.LPG))
		})

		it("sells nothing from an empty tank without failing", func() {
			subject.Withdraw(fuel.LPG, 150)
			assert.Equal(t, 0, subject.Withdraw(fuel.LPG, 35))
		})

		it("leaves the other kinds alone", func() {
			subject.Withdraw(fuel.Diesel, 85)
			assert.Equal(t, 200, subject.LevelOf(fuel.Gasoline))
			assert.Equal(t, 150, subject.LevelOf(fuel.LPG))
		})

		it("panics on a negative request", func() {
			assert.Panics(t, func() { subject.Withdraw(fuel.Diesel, -1) })
		})
	})

	describe("RefillAll()", func() {
		it("fills every tank to capacity", func() {
			subject.Withdraw(fuel.Gasoline, 190)
			subject.RefillAll()
			assert.Equal(t, map[fuel.Kind]int{fuel.Gasoline: 500, fuel.Diesel: 500, fuel.LPG: 500}, subject.Levels())
		})
	})

	describe("Probe()", func() {
		it("claims the tanker when the kind is below the low threshold", func() {
			subject.Withdraw(fuel.LPG, 100)
			level, claimed := subject.Probe(fuel.LPG, 70)
			assert.Equal(t, 50, level)
			assert.True(t, claimed)
			assert.True(t, subject.Replenishing())
		})

		it("does not claim above the threshold", func() {
			_, claimed := subject.Probe(fuel.Gasoline, 70)
			assert.False(t, claimed)
			assert.False(t, subject.Replenishing())
		})

		it("does not claim twice", func() {
			subject.Withdraw(fuel.LPG, 100)
			_, first := subject.Probe(fuel.LPG, 70)
			_, second := subject.Probe(fuel.LPG, 70)
			assert.True(t, first)
			assert.False(t, second)
		})

		it("lets exactly one of many concurrent probes claim", func() {
			subject.Withdraw(fuel.LPG, 140)
			var wg sync.WaitGroup
			var mu sync.Mutex
			claims := 0
			for i := 0; i < 64; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, ok := subject.Probe(fuel.LPG, 70); ok {
						mu.Lock()
						claims++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, 1, claims)
		})
	})

	describe("Claim() and Release()", func() {
		it("rejects a second claim until released", func() {
			assert.True(t, subject.Claim())
			assert.False(t, subject.Claim())
			subject.Release()
			assert.True(t, subject.Claim())
		})

		it("panics when releasing an unheld claim", func() {
			assert.Panics(t, func() { subject.Release() })
		})
	})
}

func TestInventoryWithdrawConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 1000).Draw(t, "capacity")
		level := rapid.IntRange(0, capacity).Draw(t, "level")
		inv := NewInventory(capacity, map[fuel.Kind]int{fuel.Gasoline: level, fuel.Diesel: level, fuel.LPG: level})

		kind := rapid.SampledFrom(fuel.Kinds).Draw(t, "kind")
		requested := rapid.IntRange(0, 2*capacity).Draw(t, "requested")

		before := inv.LevelOf(kind)
		actual := inv.Withdraw(kind, requested)
		after := inv.LevelOf(kind)

		if actual != min(requested, before) {
			t.Fatalf("withdrew %d, want min(%d, %d)", actual, requested, before)
		}
		if after != before-actual {
			t.Fatalf("level %d after withdrawing %d from %d", after, actual, before)
		}
		if after < 0 || after > capacity {
			t.Fatalf("level %d outside [0, %d]", after, capacity)
		}
	})
}

func TestInventoryLevelsStayInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		inv := NewInventory(500, map[fuel.Kind]int{fuel.Gasoline: 200, fuel.Diesel: 200, fuel.LPG: 150})
		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.IntRange(0, 9).Draw(t, "op") == 0 {
				inv.RefillAll()
			} else {
				kind := rapid.SampledFrom(fuel.Kinds).Draw(t, "kind")
				inv.Withdraw(kind, rapid.IntRange(35, 85).Draw(t, "liters"))
			}
			for k, lvl := range inv.Levels() {
				if lvl < 0 || lvl > inv.Capacity() {
					t.Fatalf("%s level %d outside [0, %d]", k, lvl, inv.Capacity())
				}
			}
		}
	})
}

func TestInventoryConcurrentWithdrawAndRefill(t *testing.T) {
	inv := NewInventory(500, map[fuel.Kind]int{fuel.Gasoline: 500, fuel.Diesel: 500, fuel.LPG: 500})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if i == 0 && j%20 == 0 {
					inv.RefillAll()
					continue
				}
				inv.Withdraw(fuel.Kinds[j%len(fuel.Kinds)], 35+j%50)
			}
		}(i)
	}
	wg.Wait()
	for _, lvl := range inv.Levels() {
		assert.GreaterOrEqual(t, lvl, 0)
		assert.LessOrEqual(t, lvl, 500)
	}
}
