package hamt

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	hasher := stringHasher{}

	model := map[string]intValue{
		"alpha": 1, "beta": 2, "gamma": 3, "delta": 4, "epsilon": 5,
		"zeta": 6, "eta": 7, "theta": 8, "iota": 9, "kappa": 10,
	}

	root := NewNode[string, intValue]()
	var err error
	for k, v := range model {
		root, err = Set(ctx, root, k, v, hasher, store)
		if err != nil {
			t.Fatalf("set(%s): %v", k, err)
		}
	}

	for k, want := range model {
		got, ok, err := Get(ctx, root, k, hasher, store)
		if err != nil {
			t.Fatalf("get(%s): %v", k, err)
		}
		if !ok || got != want {
			t.Fatalf("get(%s) = %v, %v; want %v, true", k, got, ok, want)
		}
	}

	if _, ok, err := Get(ctx, root, "not-present", hasher, store); err != nil || ok {
		t.Fatalf("get(not-present) = _, %v, %v; want false, nil", ok, err)
	}
}

func TestSetOverwritesExistingKey(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	hasher := stringHasher{}

	root, err := Set(ctx, NewNode[string, intValue](), "k", intValue(1), hasher, store)
	if err != nil {
		t.Fatal(err)
	}
	root, err = Set(ctx, root, "k", intValue(2), hasher, store)
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := Get(ctx, root, "k", hasher, store)
	if err != nil || !ok || got != 2 {
		t.Fatalf("get(k) = %v, %v, %v; want 2, true, nil", got, ok, err)
	}
}

func TestCopyOnWriteNonAliasing(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	hasher := stringHasher{}

	root := NewNode[string, intValue]()
	var err error
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		root, err = Set(ctx, root, k, intValue(len(k)), hasher, store)
		if err != nil {
			t.Fatal(err)
		}
	}

	before := snapshot(t, root)

	next, err := Set(ctx, root, "h", intValue(99), hasher, store)
	if err != nil {
		t.Fatal(err)
	}
	if !DeepEqual(root, before) {
		t.Fatalf("prior root mutated by Set")
	}
	if DeepEqual(root, next) {
		t.Fatalf("Set did not change the root")
	}

	next2, removed, ok, err := Remove(ctx, next, "h", hasher, store)
	if err != nil || !ok || removed != 99 {
		t.Fatalf("remove(h) = _, %v, %v, %v", removed, ok, err)
	}
	if !DeepEqual(next2, root) {
		t.Fatalf("set-then-remove round trip is not structurally identical to the original root")
	}
}

func snapshot[K comparable, V ValueEqual[V]](t *testing.T, n *Node[K, V]) *Node[K, V] {
	t.Helper()
	cp := *n
	cp.Pointers = append([]Pointer[K, V]{}, n.Pointers...)
	return &cp
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	hasher := stringHasher{}

	root, err := Set(ctx, NewNode[string, intValue](), "only", intValue(1), hasher, store)
	if err != nil {
		t.Fatal(err)
	}
	next, _, ok, err := Remove(ctx, root, "missing", hasher, store)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("remove(missing) reported a removal")
	}
	if !DeepEqual(root, next) {
		t.Fatalf("remove(missing) changed the tree")
	}
}

func TestCBORRoundTripThroughFlushAndReload(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	hasher := stringHasher{}

	root := NewNode[string, intValue]()
	var err error
	keys := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		k := string(rune('a'+i%26)) + string(rune('A'+i%26)) + string(rune('0'+i/26))
		keys = append(keys, k)
		root, err = Set(ctx, root, k, intValue(i), hasher, s)
		if err != nil {
			t.Fatalf("set(%s): %v", k, err)
		}
	}

	rootCID, err := Flush(ctx, root, s)
	if err != nil {
		t.Fatal(err)
	}

	reloaded := NewNode[string, intValue]()
	if err := s.GetDagCBOR(ctx, rootCID, reloaded); err != nil {
		t.Fatal(err)
	}

	for i, k := range keys {
		got, ok, err := Get(ctx, reloaded, k, hasher, s)
		if err != nil || !ok || int(got) != i {
			t.Fatalf("get(%s) after reload = %v, %v, %v; want %d, true, nil", k, got, ok, err, i)
		}
	}
}

func TestBucketSplitBeyondMaxBucket(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	hasher := stringHasher{}

	root := NewNode[string, intValue]()
	var err error
	keys := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		k := string(rune('a' + i%26))
		k = k + k + string(rune('0'+i/26))
		keys = append(keys, k)
		root, err = Set(ctx, root, k, intValue(i), hasher, store)
		if err != nil {
			t.Fatalf("set(%s): %v", k, err)
		}
	}
	for i, k := range keys {
		got, ok, err := Get(ctx, root, k, hasher, store)
		if err != nil || !ok || int(got) != i {
			t.Fatalf("get(%s) = %v, %v, %v; want %d, true, nil", k, got, ok, err, i)
		}
	}
}
