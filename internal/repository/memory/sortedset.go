package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SortedSet is an in-process stand-in for the Redis sorted-set commands the
// presence roster needs. Bounds follow Redis syntax: "-inf", "+inf", or a
// score with an optional "(" prefix for exclusive.
type SortedSet struct {
	mu   sync.Mutex
	sets map[string]map[string]float64
}

func NewSortedSet() *SortedSet {
	return &SortedSet{sets: make(map[string]map[string]float64)}
}

func (s *SortedSet) ZAdd(_ context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[key] == nil {
		s.sets[key] = make(map[string]float64)
	}
	s.sets[key][member] = score
	return nil
}

func (s *SortedSet) ZRem(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[key], member)
	return nil
}

func (s *SortedSet) ZRangeByScore(_ context.Context, key, min, max string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for member, score := range s.sets[key] {
		if inBounds(score, min, max) {
			out = append(out, member)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := s.sets[key][out[i]], s.sets[key][out[j]]
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out, nil
}

func (s *SortedSet) ZRemRangeByScore(_ context.Context, key, min, max string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for member, score := range s.sets[key] {
		if inBounds(score, min, max) {
			delete(s.sets[key], member)
		}
	}
	return nil
}

// Expire is a no-op: process lifetime bounds in-memory state already.
func (s *SortedSet) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func inBounds(score float64, min, max string) bool {
	switch {
	case min == "-inf":
	case strings.HasPrefix(min, "("):
		v, _ := strconv.ParseFloat(min[1:], 64)
		if score <= v {
			return false
		}
	default:
		v, _ := strconv.ParseFloat(min, 64)
		if score < v {
			return false
		}
	}
	switch {
	case max == "+inf":
	case strings.HasPrefix(max, "("):
		v, _ := strconv.ParseFloat(max[1:], 64)
		if score >= v {
			return false
		}
	default:
		v, _ := strconv.ParseFloat(max, 64)
		if score > v {
			return false
		}
	}
	return true
}
