package algebra

import (
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// Ctx bundles the per-call parameters iter(tx, epoch, use_delta) threads
// through the whole tree: the transaction supplying scans, the current
// semi-naive epoch (nil outside recursive evaluation), and the set of
// derived relations currently treated as "delta-only" for this step.
type Ctx struct {
	Tx       txn.Transaction
	Epoch    *uint32
	UseDelta map[txn.DerivedRelStoreID]bool
}

func (c *Ctx) inDelta(id txn.DerivedRelStoreID) bool {
	return c.UseDelta != nil && c.UseDelta[id]
}

// scanEpoch implements the semi-naive convention from §4.7: reading the
// accumulated relation uses epoch 0; reading the most recent delta slice
// for a relation participating in the current step uses epoch-1.
func (c *Ctx) scanEpoch(id txn.DerivedRelStoreID) uint32 {
	if c.Epoch != nil && c.inDelta(id) {
		return *c.Epoch - 1
	}
	return 0
}

// isFirstEpochDelta reports the §4.7 short-circuit: at epoch Some(0), a
// relation in use_delta has not produced anything yet.
func (c *Ctx) isFirstEpochDelta(id txn.DerivedRelStoreID) bool {
	return c.Epoch != nil && *c.Epoch == 0 && c.inDelta(id)
}
