package exprcache

import (
	"fmt"
	"testing"

	"github.com/lumelang/lume/internal/dispatch"
	"github.com/lumelang/lume/internal/ident"
)

func testID(n int) ident.ID {
	return ident.Derive("cache_test.lume", fmt.Sprintf("expr/%d", n))
}

func weighted(ids ...ident.ID) map[ident.ID]float64 {
	weights := make(map[ident.ID]float64, len(ids))
	for _, id := range ids {
		weights[id] = 1.0
	}
	return weights
}

func TestOfferRejectsWithoutWeight(t *testing.T) {
	c := New[string](16)
	id := testID(1)
	if c.Offer(id, "value") {
		t.Error("Offer admitted a value with no configured weight")
	}
	if _, ok := c.Get(id); ok {
		t.Error("rejected value became resident")
	}
}

func TestOfferRejectsZeroAndNegativeWeight(t *testing.T) {
	c := New[string](16)
	id := testID(1)
	for _, w := range []float64{0, -2.5} {
		c.SetWeights(map[ident.ID]float64{id: w})
		if c.Offer(id, "value") {
			t.Errorf("Offer admitted a value with weight %v", w)
		}
	}
}

func TestOfferAdmitsWithPositiveWeight(t *testing.T) {
	c := New[string](16)
	id := testID(1)
	c.SetWeights(weighted(id))
	if !c.Offer(id, "value") {
		t.Fatal("Offer rejected a positively weighted value")
	}
	got, ok := c.Get(id)
	if !ok || got != "value" {
		t.Errorf("Get = %q, %v; want value, true", got, ok)
	}
}

func TestOfferOverwrites(t *testing.T) {
	c := New[string](16)
	id := testID(1)
	c.SetWeights(weighted(id))
	c.Offer(id, "first")
	c.Offer(id, "second")
	got, _ := c.Get(id)
	if got != "second" {
		t.Errorf("Get = %q, want second", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string](3)
	ids := []ident.ID{testID(1), testID(2), testID(3), testID(4)}
	c.SetWeights(weighted(ids...))
	for i, id := range ids[:3] {
		c.Offer(id, fmt.Sprintf("v%d", i))
	}
	// Touch id 1 so id 2 becomes the eviction candidate.
	c.Get(ids[0])
	c.Offer(ids[3], "v3")

	if _, ok := c.Get(ids[1]); ok {
		t.Error("least recently used entry survived eviction")
	}
	for _, id := range []ident.ID{ids[0], ids[2], ids[3]} {
		if _, ok := c.Get(id); !ok {
			t.Errorf("entry %s evicted unexpectedly", id)
		}
	}
}

func TestReclaimDropsValuesOnly(t *testing.T) {
	c := New[string](16)
	ids := []ident.ID{testID(1), testID(2), testID(3)}
	c.SetWeights(weighted(ids...))
	for _, id := range ids {
		c.Offer(id, "v")
		c.PutType(id, "Int")
	}

	if dropped := c.Reclaim(2); dropped != 2 {
		t.Fatalf("Reclaim dropped %d, want 2", dropped)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d after reclaim, want 1", c.Len())
	}
	// Misses after reclaim are recoverable: re-offer works.
	for _, id := range ids {
		if _, ok := c.GetType(id); !ok {
			t.Errorf("type tag for %s vanished with the value", id)
		}
		if !c.Offer(id, "again") {
			t.Errorf("re-offer of %s rejected", id)
		}
	}
}

func TestReclaimMoreThanResident(t *testing.T) {
	c := New[string](16)
	id := testID(1)
	c.SetWeights(weighted(id))
	c.Offer(id, "v")
	if dropped := c.Reclaim(10); dropped != 1 {
		t.Errorf("Reclaim dropped %d, want 1", dropped)
	}
	if dropped := c.Reclaim(10); dropped != 0 {
		t.Errorf("Reclaim on empty cache dropped %d", dropped)
	}
}

func TestRemove(t *testing.T) {
	c := New[string](16)
	id := testID(1)
	c.SetWeights(weighted(id))
	c.Offer(id, "v")
	val, ok := c.Remove(id)
	if !ok || val != "v" {
		t.Errorf("Remove = %q, %v; want v, true", val, ok)
	}
	if _, ok := c.Remove(id); ok {
		t.Error("second Remove reported success")
	}
}

func TestClearKeepsMetadata(t *testing.T) {
	c := New[string](16)
	id := testID(1)
	c.SetWeights(weighted(id))
	c.Offer(id, "v")
	c.PutType(id, "String")
	c.PutCall(id, &CallDescriptor{Name: "f"})

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear", c.Len())
	}
	if _, ok := c.GetType(id); !ok {
		t.Error("Clear dropped type tags")
	}
	if c.GetCall(id) == nil {
		t.Error("Clear dropped call descriptors")
	}
	if c.Weight(id) != 1.0 {
		t.Error("Clear dropped weights")
	}
}

func TestTypeTagsIndependentOfValues(t *testing.T) {
	c := New[string](16)
	id := testID(1)
	// No weight, so the value is never admitted; the tag still lands.
	if c.Offer(id, "v") {
		t.Fatal("unexpected admission")
	}
	c.PutType(id, "List")
	tag, ok := c.GetType(id)
	if !ok || tag != "List" {
		t.Errorf("GetType = %q, %v; want List, true", tag, ok)
	}
	old, ok := c.PutType(id, "Int")
	if !ok || old != "List" {
		t.Errorf("PutType returned %q, %v; want List, true", old, ok)
	}
}

func TestCallDescriptors(t *testing.T) {
	c := New[string](16)
	site := testID(1)
	callee := testID(2)
	desc := &CallDescriptor{
		Function: callee,
		Name:     "add",
		ArgTypes: []dispatch.TypeKey{"Int", "Int"},
	}
	if old := c.PutCall(site, desc); old != nil {
		t.Errorf("first PutCall returned %v", old)
	}
	got := c.GetCall(site)
	if got == nil || got.Name != "add" || got.Function != callee || len(got.ArgTypes) != 2 {
		t.Errorf("GetCall = %+v", got)
	}
	sites := c.ListCallSites()
	if len(sites) != 1 || sites[0] != site {
		t.Errorf("ListCallSites = %v", sites)
	}
	if old := c.PutCall(site, nil); old != desc {
		t.Errorf("removing PutCall returned %v, want previous descriptor", old)
	}
	if c.GetCall(site) != nil {
		t.Error("descriptor survived nil PutCall")
	}
}

func TestSetWeightsReplacesWholesale(t *testing.T) {
	c := New[string](16)
	a, b := testID(1), testID(2)
	c.SetWeights(weighted(a))
	c.Offer(a, "v")

	c.SetWeights(weighted(b))
	if c.Weight(a) != 0 {
		t.Error("old weight survived SetWeights")
	}
	// The resident value stays; only future admissions change.
	if _, ok := c.Get(a); !ok {
		t.Error("SetWeights evicted a resident value")
	}
	if c.Offer(a, "again2") {
		t.Error("Offer admitted after weight removal")
	}
}

func TestDefaultCapacity(t *testing.T) {
	c := New[int](0)
	if c.capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", c.capacity, DefaultCapacity)
	}
}
