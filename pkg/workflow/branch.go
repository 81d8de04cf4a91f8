package workflow

// BranchSpec is a branch selection: a mapping from branchpoint to a chosen
// branch value. It is stored as a dense vector indexed by branchpoint id;
// NilIdent means the branchpoint is unspecified, which every consumer
// treats as "baseline".
type BranchSpec struct {
	vals []IdentID
}

// Insert sets branchpoint k to value v, growing the vector as needed.
func (b *BranchSpec) Insert(k BranchpointID, v IdentID) {
	for int(k) >= len(b.vals) {
		b.vals = append(b.vals, NilIdent)
	}
	b.vals[int(k)] = v
}

// Specified returns the value for branchpoint k if it is set.
func (b *BranchSpec) Specified(k BranchpointID) (IdentID, bool) {
	if int(k) >= len(b.vals) || b.vals[int(k)] == NilIdent {
		return NilIdent, false
	}
	return b.vals[int(k)], true
}

// Unset clears branchpoint k, leaving it baseline.
func (b *BranchSpec) Unset(k BranchpointID) {
	if int(k) < len(b.vals) {
		b.vals[int(k)] = NilIdent
	}
}

// InsertAll copies every specified entry of o into b.
func (b *BranchSpec) InsertAll(o *BranchSpec) {
	for k, v := range o.vals {
		if v != NilIdent {
			b.Insert(BranchpointID(k), v)
		}
	}
}

// Clone returns an independent copy of b.
func (b *BranchSpec) Clone() BranchSpec {
	vals := make([]IdentID, len(b.vals))
	copy(vals, b.vals)
	return BranchSpec{vals: vals}
}

// Len returns the length of the underlying vector. Entries past Len are
// unspecified.
func (b *BranchSpec) Len() int {
	return len(b.vals)
}

// IsEmpty reports whether no branchpoint is specified.
func (b *BranchSpec) IsEmpty() bool {
	for _, v := range b.vals {
		if v != NilIdent {
			return false
		}
	}
	return true
}

// Equal reports whether b and o specify the same values, treating entries
// past either vector's length as unspecified.
func (b *BranchSpec) Equal(o *BranchSpec) bool {
	n := len(b.vals)
	if len(o.vals) > n {
		n = len(o.vals)
	}
	for i := 0; i < n; i++ {
		var bv, ov IdentID
		if i < len(b.vals) {
			bv = b.vals[i]
		}
		if i < len(o.vals) {
			ov = o.vals[i]
		}
		if bv != ov {
			return false
		}
	}
	return true
}

// IsExactMatch reports whether every specified entry of b is specified with
// the same value in o. Used to match invalidation targets against
// realization keys.
func (b *BranchSpec) IsExactMatch(o *BranchSpec) bool {
	for k, v := range b.vals {
		if v == NilIdent {
			continue
		}
		ov, ok := o.Specified(BranchpointID(k))
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Each calls fn for every specified (branchpoint, value) pair in id order.
func (b *BranchSpec) Each(fn func(BranchpointID, IdentID)) {
	for k, v := range b.vals {
		if v != NilIdent {
			fn(BranchpointID(k), v)
		}
	}
}

// Mask returns a bitset with one bit per specified branchpoint.
func (b *BranchSpec) Mask() Mask {
	var m Mask
	for k, v := range b.vals {
		if v != NilIdent && k < MaxBranchpoints {
			m.Set(k)
		}
	}
	return m
}
