package similarity

import "novaReco/domain"

// AttributeSet collects types, vendors and tags and matches products that
// share at least one of them.
type AttributeSet struct {
	types   map[string]struct{}
	vendors map[string]struct{}
	tags    map[string]struct{}
}

func NewAttributeSet() *AttributeSet {
	return &AttributeSet{
		types:   map[string]struct{}{},
		vendors: map[string]struct{}{},
		tags:    map[string]struct{}{},
	}
}

func (s *AttributeSet) AddTypes(values ...string) {
	addAll(s.types, values)
}

func (s *AttributeSet) AddVendors(values ...string) {
	addAll(s.vendors, values)
}

func (s *AttributeSet) AddTags(values ...string) {
	addAll(s.tags, values)
}

// AddProduct adds the type, vendor and tags of p.
func (s *AttributeSet) AddProduct(p domain.Product) {
	s.AddTypes(p.Type)
	s.AddVendors(p.Vendor)
	s.AddTags(p.Tags...)
}

func (s *AttributeSet) Empty() bool {
	return len(s.types) == 0 && len(s.vendors) == 0 && len(s.tags) == 0
}

func (s *AttributeSet) Matches(p domain.Product) bool {
	if _, ok := s.types[p.Type]; ok && p.Type != "" {
		return true
	}
	if _, ok := s.vendors[p.Vendor]; ok && p.Vendor != "" {
		return true
	}
	for _, t := range p.Tags {
		if _, ok := s.tags[t]; ok {
			return true
		}
	}
	return false
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
}
