package access

import "sort"

// IDSet is a set of resource IDs.
type IDSet map[string]struct{}

// NewIDSet returns a set holding the non-empty ids.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	set.Add(ids...)
	return set
}

func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

func (s IDSet) IsEmpty() bool { return len(s) == 0 }

// Slice returns the ids sorted.
func (s IDSet) Slice() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Intersect returns the ids present in both sets.
func (s IDSet) Intersect(other IDSet) IDSet {
	res := make(IDSet)
	for id := range s {
		if other.Has(id) {
			res[id] = struct{}{}
		}
	}
	return res
}
