// Package selection keeps the ordered list of questions chosen for a worksheet.
package selection

// Set is an insertion-ordered set of label ids.
type Set struct {
	ids []string
}

// New builds a set from ids, dropping duplicates and keeping first occurrences.
func New(ids ...string) Set {
	var s Set
	for _, id := range ids {
		if !s.Contains(id) {
			s.ids = append(s.ids, id)
		}
	}
	return s
}

// Toggle appends id when absent and removes it when present.
// Returns true when id was added.
func (s *Set) Toggle(id string) bool {
	if s.Remove(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id, reporting whether it was present.
func (s *Set) Remove(id string) bool {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether id is selected.
func (s Set) Contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// IDs returns a copy of the selected ids in selection order.
func (s Set) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of selected ids.
func (s Set) Len() int { return len(s.ids) }
