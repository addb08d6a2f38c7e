package persist

import (
	"path/filepath"
	"testing"

	"github.com/lumelang/lume/internal/ident"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWeightsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	a := ident.Derive("main.lume", "let a/value")
	b := ident.Derive("main.lume", "let b/value")

	store := openStore(t, path)
	if err := store.SaveWeights(map[ident.ID]float64{a: 1.5, b: 3}); err != nil {
		t.Fatalf("SaveWeights: %s", err)
	}
	store.Close()

	reopened := openStore(t, path)
	weights, err := reopened.LoadWeights()
	if err != nil {
		t.Fatalf("LoadWeights: %s", err)
	}
	if len(weights) != 2 || weights[a] != 1.5 || weights[b] != 3 {
		t.Errorf("weights = %v", weights)
	}
}

func TestSaveWeightsReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	a := ident.Derive("main.lume", "a")
	b := ident.Derive("main.lume", "b")

	store := openStore(t, path)
	if err := store.SaveWeights(map[ident.ID]float64{a: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveWeights(map[ident.ID]float64{b: 2}); err != nil {
		t.Fatal(err)
	}
	weights, err := store.LoadWeights()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := weights[a]; ok {
		t.Error("old snapshot survived SaveWeights")
	}
	if weights[b] != 2 {
		t.Errorf("weights = %v", weights)
	}
}

func TestTypesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	id := ident.Derive("main.lume", "let x/value")

	store := openStore(t, path)
	if err := store.SaveTypes(map[ident.ID]string{id: "List"}); err != nil {
		t.Fatalf("SaveTypes: %s", err)
	}
	types, err := store.LoadTypes()
	if err != nil {
		t.Fatalf("LoadTypes: %s", err)
	}
	if types[id] != "List" {
		t.Errorf("types = %v", types)
	}
}

func TestEmptyStore(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
	weights, err := store.LoadWeights()
	if err != nil {
		t.Fatal(err)
	}
	if len(weights) != 0 {
		t.Errorf("fresh store has %d weights", len(weights))
	}
	types, err := store.LoadTypes()
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 0 {
		t.Errorf("fresh store has %d types", len(types))
	}
}
