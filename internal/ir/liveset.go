package ir

import "sort"

// LiveSet is the set of Vars live at some program point. It is the pass
// annotation produced by AnalyzeLiveness and consumed by the register
// allocator's interference-graph builder.
//
// Modeled as a bare map, following the teacher's own from-scratch
// map-of-sets approach to liveness state (no third-party set/bitset library
// appears anywhere in the example pack for structures at this scale).
type LiveSet struct {
	vars map[Var]struct{}
}

// NewLiveSet returns an empty LiveSet.
func NewLiveSet() *LiveSet { return &LiveSet{vars: make(map[Var]struct{})} }

// Insert adds v to the set.
func (s *LiveSet) Insert(v Var) { s.vars[v] = struct{}{} }

// Remove deletes v from the set, if present.
func (s *LiveSet) Remove(v Var) { delete(s.vars, v) }

// Contains reports whether v is in the set.
func (s *LiveSet) Contains(v Var) bool {
	_, ok := s.vars[v]
	return ok
}

// Len returns the number of live variables.
func (s *LiveSet) Len() int { return len(s.vars) }

// Clone returns an independent copy of s.
func (s *LiveSet) Clone() *LiveSet {
	out := make(map[Var]struct{}, len(s.vars))
	for v := range s.vars {
		out[v] = struct{}{}
	}
	return &LiveSet{vars: out}
}

// InsertImmediate adds imm's referenced Var to the set, if imm is a
// variable; constants contribute nothing to liveness.
func (s *LiveSet) InsertImmediate(imm Immediate) {
	if imm.IsVar() {
		s.Insert(imm.Var())
	}
}

// Union merges other's members into s.
func (s *LiveSet) Union(other *LiveSet) {
	for v := range other.vars {
		s.vars[v] = struct{}{}
	}
}

// Equal reports whether s and other contain exactly the same Vars. Used by
// the liveness driver loop to detect fixpoint convergence.
func (s *LiveSet) Equal(other *LiveSet) bool {
	if len(s.vars) != len(other.vars) {
		return false
	}
	for v := range s.vars {
		if _, ok := other.vars[v]; !ok {
			return false
		}
	}
	return true
}

// Each calls f once per live Var, in a stable (sorted by String) order, so
// callers that build deterministic output (interference graph edges,
// debug listings) don't depend on Go's randomized map iteration.
func (s *LiveSet) Each(f func(Var)) {
	vs := make([]Var, 0, len(s.vars))
	for v := range s.vars {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].String() < vs[j].String() })
	for _, v := range vs {
		f(v)
	}
}

// Slice returns the live Vars in the same stable order as Each.
func (s *LiveSet) Slice() []Var {
	out := make([]Var, 0, len(s.vars))
	s.Each(func(v Var) { out = append(out, v) })
	return out
}
