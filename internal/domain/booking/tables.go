package booking

import (
	"sort"
	"time"
)

type Table struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	Floor     int     `json:"floor"`
	Capacity  int     `json:"capacity"`
	Available bool    `json:"available"`
	Price     float64 `json:"price"`
}

// AvailabilityFilter is the date/floor context a selection was made under.
type AvailabilityFilter struct {
	At    time.Time
	Floor *int
}

func (f AvailabilityFilter) Equal(o AvailabilityFilter) bool {
	if !f.At.Equal(o.At) {
		return false
	}
	switch {
	case f.Floor == nil && o.Floor == nil:
		return true
	case f.Floor == nil || o.Floor == nil:
		return false
	}
	return *f.Floor == *o.Floor
}

// TableSelection is the set of tables picked for one booking attempt.
// Membership is not checked against availability.
type TableSelection struct {
	ids    map[int64]struct{}
	filter AvailabilityFilter
}

func NewTableSelection(ids ...int64) *TableSelection {
	s := &TableSelection{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Toggle adds id when absent and removes it when present.
func (s *TableSelection) Toggle(id int64) {
	if s.ids == nil {
		s.ids = make(map[int64]struct{})
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

func (s *TableSelection) Contains(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Members returns the selected ids in ascending order.
func (s *TableSelection) Members() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *TableSelection) Len() int { return len(s.ids) }

func (s *TableSelection) Clear() {
	s.ids = make(map[int64]struct{})
}

// SetFilter records the availability context and clears the selection when it
// changed. It reports whether a clear happened.
func (s *TableSelection) SetFilter(f AvailabilityFilter) bool {
	if s.filter.Equal(f) {
		return false
	}
	s.filter = f
	if s.Len() == 0 {
		return false
	}
	s.Clear()
	return true
}

func (s *TableSelection) Filter() AvailabilityFilter { return s.filter }
