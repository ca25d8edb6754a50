package pivot

// Subset is an ordered selection of store records, held as store indices.
// Filtering never reorders: indices stay ascending in store order.
type Subset struct {
	store *Store
	idx   []int
}

// Len returns the number of selected records.
func (s Subset) Len() int { return len(s.idx) }

// Record returns the i-th selected record.
func (s Subset) Record(i int) *KeywordRecord { return s.store.Record(s.idx[i]) }

// StoreIndex maps a subset position back to its store index.
func (s Subset) StoreIndex(i int) int { return s.idx[i] }

// Indices returns a copy of the selected store indices.
func (s Subset) Indices() []int {
	out := make([]int, len(s.idx))
	copy(out, s.idx)
	return out
}

// Records materializes the selection as deep copies; callers may modify
// them without touching the store.
func (s Subset) Records() []KeywordRecord {
	out := make([]KeywordRecord, len(s.idx))
	for i, j := range s.idx {
		out[i] = s.store.records[j].clone()
	}
	return out
}

// Store returns the backing store.
func (s Subset) Store() *Store { return s.store }

// Filter returns the records of s matching p, in order. A single linear
// scan with the precompiled predicate; no per-axis sub-filtering.
func (s Subset) Filter(p *Predicate) Subset {
	if p == nil || len(p.axes) == 0 {
		return Subset{store: s.store, idx: append([]int(nil), s.idx...)}
	}
	out := make([]int, 0, len(s.idx))
	for _, j := range s.idx {
		if p.match(&s.store.records[j], &s.store.index[j]) {
			out = append(out, j)
		}
	}
	return Subset{store: s.store, idx: out}
}

// Filter applies p across the whole store.
func (st *Store) Filter(p *Predicate) Subset {
	if p == nil || len(p.axes) == 0 {
		return st.All()
	}
	out := make([]int, 0, len(st.records)/4)
	for j := range st.records {
		if p.match(&st.records[j], &st.index[j]) {
			out = append(out, j)
		}
	}
	return Subset{store: st, idx: out}
}
