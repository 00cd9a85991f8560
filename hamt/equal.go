package hamt

// DeepEqual performs a structural comparison of two nodes without
// touching the store: unresolved Links are compared by CID when both
// sides have one, otherwise by comparing the resident node. It exists
// so tests can assert the copy-on-write non-aliasing invariant (spec
// §8 property 2) without caring whether a branch was ever flushed.
func DeepEqual[K comparable, V ValueEqual[V]](a, b *Node[K, V]) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return a == b
	}
	if a.Bitmask != b.Bitmask || len(a.Pointers) != len(b.Pointers) {
		return false
	}
	for i := range a.Pointers {
		pa, pb := a.Pointers[i], b.Pointers[i]
		if pa.isLink() != pb.isLink() {
			return false
		}
		if pa.isLink() {
			ca, aok := pa.Link.CID()
			cb, bok := pb.Link.CID()
			switch {
			case aok && bok:
				if !ca.Equals(cb) {
					return false
				}
			case pa.Link.node != nil && pb.Link.node != nil:
				if !DeepEqual(pa.Link.node, pb.Link.node) {
					return false
				}
			default:
				return false
			}
			continue
		}
		if len(pa.Values) != len(pb.Values) {
			return false
		}
		for j := range pa.Values {
			if pa.Values[j].Key != pb.Values[j].Key || !pa.Values[j].Value.Equal(pb.Values[j].Value) {
				return false
			}
		}
	}
	return true
}
