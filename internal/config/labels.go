package config

// Label is one user-defined classification category.
type Label struct {
	Name        string
	Description string
}

// LabelSet is an ordered collection of labels keyed by name.
// Order is the order labels were first added; it drives the order of digest
// sections. The zero value is an empty set.
type LabelSet struct {
	labels []Label
	index  map[string]int
}

// NewLabelSet builds a set from labels. A repeated name keeps the position of
// its first occurrence and the description of its last.
func NewLabelSet(labels ...Label) LabelSet {
	s := LabelSet{index: make(map[string]int, len(labels))}
	for _, l := range labels {
		if i, ok := s.index[l.Name]; ok {
			s.labels[i].Description = l.Description
			continue
		}
		s.index[l.Name] = len(s.labels)
		s.labels = append(s.labels, l)
	}
	return s
}

// Len returns the number of labels.
func (s LabelSet) Len() int {
	return len(s.labels)
}

// Labels returns a copy of the labels in order.
func (s LabelSet) Labels() []Label {
	out := make([]Label, len(s.labels))
	copy(out, s.labels)
	return out
}

// Names returns the label names in order.
func (s LabelSet) Names() []string {
	out := make([]string, len(s.labels))
	for i, l := range s.labels {
		out[i] = l.Name
	}
	return out
}

// Has reports whether name is a label in the set. Matching is exact.
func (s LabelSet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Without returns a new set with the named labels removed.
func (s LabelSet) Without(names ...string) LabelSet {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := make([]Label, 0, len(s.labels))
	for _, l := range s.labels {
		if !drop[l.Name] {
			kept = append(kept, l)
		}
	}
	return NewLabelSet(kept...)
}
