package executor

import (
	"github.com/tuannm99/novaquery/internal/catalog"
	"github.com/tuannm99/novaquery/internal/heap"
	"github.com/tuannm99/novaquery/internal/record"
)

// tempScope owns the temporaries of one statement and releases all of them
// when the statement ends, whether it failed or not.
type tempScope struct {
	cat   *catalog.Catalog
	names []string
}

func (s *tempScope) create(label string, schema record.Schema) (*heap.Relation, error) {
	rel, err := s.cat.CreateTemp(label, schema)
	if err != nil {
		return nil, err
	}
	s.names = append(s.names, rel.Name())
	return rel, nil
}

// adopt takes over a temporary created elsewhere. User relations are ignored.
func (s *tempScope) adopt(name string) {
	if catalog.IsTemp(name) {
		s.names = append(s.names, name)
	}
}

func (s *tempScope) release() {
	for i := len(s.names) - 1; i >= 0; i-- {
		s.cat.Release(s.names[i])
	}
	s.names = nil
}
