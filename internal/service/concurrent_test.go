package service

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// Sell admission and the matching worker both rewrite a buy bet's row:
// admission moves sold/reward bookkeeping onto a child sell under the row
// lock, the worker persists a full-row update after its own reload. The
// worker must reload under the same lock or its write restores the columns
// admission just moved. In the database the row-level FOR UPDATE lock
// provides this guarantee; here the guard is replicated with sync primitives
// so the race detector can confirm the pattern is sound.
func TestLockedReloadPreservesSellBookkeeping(t *testing.T) {
	type row struct {
		sold      int64
		reward    decimal.Decimal
		unmatched int64
	}

	for i := 0; i < 200; i++ {
		var (
			mu          sync.Mutex
			parent      = row{sold: 0, reward: decimal.NewFromInt(100), unmatched: 10}
			childReward decimal.Decimal
			wg          sync.WaitGroup
		)

		wg.Add(2)
		go func() { // sell admission: sold and reward move to the child
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			parent.sold += 5
			childReward = parent.reward
			parent.reward = decimal.Zero
		}()
		go func() { // worker: locked reload, then full-row write-back
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			reloaded := parent
			reloaded.unmatched = 0
			parent = reloaded
		}()
		wg.Wait()

		if parent.sold != 5 {
			t.Fatalf("sold = %d, want 5; worker write-back clobbered admission", parent.sold)
		}
		if !parent.reward.Add(childReward).Equal(decimal.NewFromInt(100)) {
			t.Fatalf("reward not conserved: parent %s + child %s", parent.reward, childReward)
		}
		if parent.unmatched != 0 {
			t.Fatalf("unmatched = %d, want 0", parent.unmatched)
		}
	}
}
