package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Branch key syntax: "Arch.arm+Profile.debug". Branchpoints are sorted
// lexicographically by name so keys are reproducible across runs regardless
// of interning order. A selection with nothing specified is "Baseline.baseline".
const (
	// KVDelim separates a branchpoint name from its value.
	KVDelim = "."
	// PairDelim separates branchpoint/value pairs.
	PairDelim = "+"
	// BaselineKey is the key of the all-baseline selection.
	BaselineKey = "Baseline.baseline"
)

// FormatKey renders a branch selection as its canonical realization key.
func FormatKey(b *BranchSpec, s *Strings) (string, error) {
	type pair struct {
		name, val string
	}
	var pairs []pair
	var firstErr error
	b.Each(func(k BranchpointID, v IdentID) {
		name, err := s.Branchpoints.Get(k)
		if err != nil && firstErr == nil {
			firstErr = err
			return
		}
		val, err := s.Idents.Get(v)
		if err != nil && firstErr == nil {
			firstErr = err
			return
		}
		pairs = append(pairs, pair{name, val})
	})
	if firstErr != nil {
		return "", firstErr
	}
	if len(pairs) == 0 {
		return BaselineKey, nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].name < pairs[j].name })
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString(PairDelim)
		}
		sb.WriteString(p.name)
		sb.WriteString(KVDelim)
		sb.WriteString(p.val)
	}
	return sb.String(), nil
}

// ParseKey parses a realization key back into a branch selection,
// interning any names it has not seen. The literal "Baseline.baseline"
// component stands for "nothing specified" and is skipped.
func ParseKey(key string, s *Strings) (BranchSpec, error) {
	var b BranchSpec
	for _, kv := range strings.Split(key, PairDelim) {
		if kv == BaselineKey {
			continue
		}
		name, val, ok := strings.Cut(kv, KVDelim)
		if !ok || name == "" || val == "" {
			return BranchSpec{}, fmt.Errorf("invalid branch key component %q in %q", kv, key)
		}
		k := s.AddBranchpoint(name)
		v := s.AddBranchValue(k, val)
		b.Insert(k, v)
	}
	return b, nil
}
