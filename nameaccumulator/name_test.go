package nameaccumulator

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestDeterministicInSegmentSet(t *testing.T) {
	setup, err := NewSetup(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	s1, _ := NewNameSegment(rand.Reader)
	s2, _ := NewNameSegment(rand.Reader)

	a := Empty(setup).WithSegmentsAdded(s1, s2).AsAccumulator()
	b := Empty(setup).WithSegmentsAdded(s2, s1).AsAccumulator()

	if !a.Equals(b) {
		t.Fatalf("accumulator is order-dependent: %x != %x", a, b)
	}
}

func TestDistinctPathsDisagree(t *testing.T) {
	setup, err := NewSetup(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	s1, _ := NewNameSegment(rand.Reader)
	s2, _ := NewNameSegment(rand.Reader)

	a := Empty(setup).WithSegmentsAdded(s1).AsAccumulator()
	b := Empty(setup).WithSegmentsAdded(s2).AsAccumulator()

	if a.Equals(b) {
		t.Fatalf("distinct single-segment names collided")
	}
}

func TestHidingDoesNotLeakSegmentBytes(t *testing.T) {
	setup, err := NewSetup(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	seg, _ := NewNameSegment(rand.Reader)
	acc := Empty(setup).WithSegmentsAdded(seg).AsAccumulator()

	if bytes.Contains(acc[:], seg[:]) {
		t.Fatalf("accumulator leaked the raw segment bytes")
	}
}
