package resource

import (
	"sync"
	"testing"
)

func TestSetGetDelete(t *testing.T) {
	st := NewStore()
	st.Set("/pets/1", map[string]any{"id": 1})

	v, ok := st.Get("/pets/1")
	if !ok {
		t.Fatal("Get after Set should find the value")
	}
	if v.(map[string]any)["id"] != 1 {
		t.Errorf("stored value damaged: %v", v)
	}

	if !st.Delete("/pets/1") {
		t.Error("Delete of existing key should report true")
	}
	if st.Delete("/pets/1") {
		t.Error("Delete of absent key should report false")
	}
	if _, ok := st.Get("/pets/1"); ok {
		t.Error("Get after Delete should miss")
	}
}

func TestCollectionAppendAndRemove(t *testing.T) {
	st := NewStore()
	st.AppendToCollection("/pets", map[string]any{"id": float64(1), "name": "Rex"})
	st.AppendToCollection("/pets", map[string]any{"id": float64(2), "name": "Bo"})

	items, ok := st.GetCollection("/pets")
	if !ok || len(items) != 2 {
		t.Fatalf("collection = %v, want 2 items", items)
	}

	if !st.RemoveFromCollection("/pets", "id", float64(1)) {
		t.Fatal("RemoveFromCollection should find id 1")
	}
	items, _ = st.GetCollection("/pets")
	if len(items) != 1 || items[0].(map[string]any)["name"] != "Bo" {
		t.Errorf("after removal: %v", items)
	}

	if st.RemoveFromCollection("/pets", "id", float64(99)) {
		t.Error("removing an absent id should report false")
	}
}

func TestRemoveFromCollectionLooseIDTypes(t *testing.T) {
	st := NewStore()
	// JSON decoding stores numeric ids as float64; the request path
	// yields a string. Both must address the same element.
	st.AppendToCollection("/orders", map[string]any{"id": float64(7)})

	if !st.RemoveFromCollection("/orders", "id", "7") {
		t.Error("string \"7\" should match stored float64 7")
	}
}

func TestGetCollectionOnNonArray(t *testing.T) {
	st := NewStore()
	st.Set("/pets", "not an array")
	if _, ok := st.GetCollection("/pets"); ok {
		t.Error("GetCollection on non-array value should report false")
	}
}

func TestReset(t *testing.T) {
	st := NewStore()
	st.Set("/a", 1)
	st.AppendToCollection("/b", 2)
	st.Reset()
	if st.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", st.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	st := NewStore()
	st.Set("/a", 1)
	snap := st.Snapshot()
	snap["/b"] = 2
	if _, ok := st.Get("/b"); ok {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestDoSerializesPerKey(t *testing.T) {
	st := NewStore()
	st.Set("/counters/1", 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Do("/counters", func() {
				v, _ := st.Get("/counters/1")
				st.Set("/counters/1", v.(int)+1)
			})
		}()
	}
	wg.Wait()

	v, _ := st.Get("/counters/1")
	if v.(int) != 100 {
		t.Errorf("counter = %v, want 100 (lost update)", v)
	}
}

func TestConcurrentDistinctKeys(t *testing.T) {
	st := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := "/k" + string(rune('a'+n%26))
			st.Set(key, n)
			st.Get(key)
			st.AppendToCollection(key+"/list", n)
		}(i)
	}
	wg.Wait()
}

func TestDeleteLeavesTombstone(t *testing.T) {
	st := NewStore()
	st.Set("/pets/1", map[string]any{"id": 1})

	if st.WasDeleted("/pets/1") {
		t.Fatal("live key reported as deleted")
	}
	st.Delete("/pets/1")
	if !st.WasDeleted("/pets/1") {
		t.Error("deleted key not remembered")
	}
	if st.WasDeleted("/pets/2") {
		t.Error("never-written key reported as deleted")
	}

	// Deleting an absent key leaves no tombstone.
	st.Delete("/pets/3")
	if st.WasDeleted("/pets/3") {
		t.Error("no-op delete left a tombstone")
	}
}

func TestSetClearsTombstone(t *testing.T) {
	st := NewStore()
	st.Set("/pets/1", map[string]any{"id": 1})
	st.Delete("/pets/1")
	st.Set("/pets/1", map[string]any{"id": 1})

	if st.WasDeleted("/pets/1") {
		t.Error("re-set key still reported as deleted")
	}
}

func TestResetClearsTombstones(t *testing.T) {
	st := NewStore()
	st.Set("/pets/1", map[string]any{"id": 1})
	st.Delete("/pets/1")
	st.Reset()

	if st.WasDeleted("/pets/1") {
		t.Error("reset store still reports deletions")
	}
}
