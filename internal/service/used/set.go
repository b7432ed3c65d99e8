package used

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Policy string

const (
	// PolicyReset empties a full set before admitting a new item.
	PolicyReset Policy = "reset"
	// PolicyLRU evicts the least recently used item instead.
	PolicyLRU Policy = "lru"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyReset:
		return PolicyReset, nil
	case PolicyLRU:
		return PolicyLRU, nil
	default:
		return "", fmt.Errorf("unknown used-content policy: %s", s)
	}
}

// Set is a capped set of strings. Not safe for concurrent use.
type Set struct {
	cap    int
	policy Policy

	items map[string]struct{}
	order []string

	recent *lru.Cache[string, struct{}]
}

func NewSet(capacity int, policy Policy) (*Set, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("set capacity must be positive, got %d", capacity)
	}

	s := &Set{cap: capacity, policy: policy}
	switch policy {
	case PolicyReset:
		s.items = make(map[string]struct{}, capacity)
	case PolicyLRU:
		c, err := lru.New[string, struct{}](capacity)
		if err != nil {
			return nil, err
		}
		s.recent = c
	default:
		return nil, fmt.Errorf("unknown used-content policy: %s", policy)
	}
	return s, nil
}

func (s *Set) Contains(item string) bool {
	if s.recent != nil {
		// Get, not Contains: a hit counts as a use
		_, ok := s.recent.Get(item)
		return ok
	}
	_, ok := s.items[item]
	return ok
}

// Add inserts item and reports whether it was new.
func (s *Set) Add(item string) bool {
	if s.recent != nil {
		if s.recent.Contains(item) {
			s.recent.Get(item)
			return false
		}
		s.recent.Add(item, struct{}{})
		return true
	}

	if _, ok := s.items[item]; ok {
		return false
	}
	if len(s.items) >= s.cap {
		clear(s.items)
		s.order = s.order[:0]
	}
	s.items[item] = struct{}{}
	s.order = append(s.order, item)
	return true
}

func (s *Set) Len() int {
	if s.recent != nil {
		return s.recent.Len()
	}
	return len(s.items)
}

// Items lists the set oldest first.
func (s *Set) Items() []string {
	if s.recent != nil {
		return s.recent.Keys()
	}
	return append([]string{}, s.order...)
}

func (s *Set) Cap() int {
	return s.cap
}
