package storage

import (
	"os"
	"testing"
	"time"

	"github.com/relalg-io/triplealgebra/datalog"
	"github.com/relalg-io/triplealgebra/datalog/txn"
)

// TestWithHistoryGatesVldPushdown proves the §4.5(ii) contract: an attribute
// registered with WithHistory=false is current-state only, so a scan against
// it ignores whatever vld the query supplies, while an otherwise-identical
// WithHistory=true attribute still gets bitemporal filtering.
func TestWithHistoryGatesVldPushdown(t *testing.T) {
	dir, err := os.MkdirTemp("", "badger-withhistory-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	db, err := NewDatabaseWithTimeTx(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	tracked := db.Attributes().Register(datalog.NewKeyword(":user/nickname"), true, false, false)
	untracked := db.Attributes().Register(datalog.NewKeyword(":user/status"), false, false, false)

	alice := datalog.NewIdentity("user:alice")

	t1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assertAt := func(txTime time.Time, attr string, v interface{}) {
		tx := db.NewTransactionAt(txTime)
		if err := tx.Add(alice, datalog.NewKeyword(attr), v); err != nil {
			t.Fatal(err)
		}
		if _, err := tx.Commit(); err != nil {
			t.Fatal(err)
		}
	}

	assertAt(t1, ":user/nickname", "Ali")
	assertAt(t2, ":user/nickname", "Alice")
	assertAt(t1, ":user/status", "pending")
	assertAt(t2, ":user/status", "active")

	// as-of t1: before the second write to either attribute.
	asOfT1 := t1.Add(time.Hour)

	txView := db.Txn()

	trackedFrags := drainFrags(txView.TripleAEScan(tracked, alice, asOfT1))
	if len(trackedFrags) != 1 {
		t.Fatalf("WithHistory=true attribute: expected 1 fragment as-of t1, got %d", len(trackedFrags))
	}
	if trackedFrags[0].V != "Ali" {
		t.Fatalf("WithHistory=true attribute: expected value from t1, got %v", trackedFrags[0].V)
	}

	untrackedFrags := drainFrags(txView.TripleAEScan(untracked, alice, asOfT1))
	if len(untrackedFrags) != 2 {
		t.Fatalf("WithHistory=false attribute: expected vld to be ignored (both datoms visible), got %d", len(untrackedFrags))
	}
}

func drainFrags(seq txn.FragmentSeq) []txn.Fragment {
	var out []txn.Fragment
	for {
		f, ok := seq.Next()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}
