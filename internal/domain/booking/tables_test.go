package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTableSelectionToggle(t *testing.T) {
	s := NewTableSelection()
	s.Toggle(7)
	s.Toggle(3)
	s.Toggle(12)
	assert.Equal(t, []int64{3, 7, 12}, s.Members())
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(7))

	s.Toggle(7)
	assert.False(t, s.Contains(7))
	assert.Equal(t, []int64{3, 12}, s.Members())
}

func TestTableSelectionTogglePairIsNoop(t *testing.T) {
	s := NewTableSelection(1, 2)
	before := s.Members()
	for _, id := range []int64{2, 9} {
		s.Toggle(id)
		s.Toggle(id)
	}
	assert.Equal(t, before, s.Members())
}

func TestTableSelectionZeroValue(t *testing.T) {
	var s TableSelection
	assert.Empty(t, s.Members())
	s.Toggle(4)
	assert.Equal(t, []int64{4}, s.Members())
	s.Clear()
	assert.Zero(t, s.Len())
}

func TestTableSelectionClearedOnFilterChange(t *testing.T) {
	at := time.Date(2026, 4, 2, 23, 0, 0, 0, time.UTC)
	first, second := 1, 2

	s := NewTableSelection()
	assert.False(t, s.SetFilter(AvailabilityFilter{At: at, Floor: &first}))
	s.Toggle(10)
	s.Toggle(11)

	same := 1
	assert.False(t, s.SetFilter(AvailabilityFilter{At: at, Floor: &same}), "equal floor value must not clear")
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.SetFilter(AvailabilityFilter{At: at, Floor: &second}))
	assert.Zero(t, s.Len())

	s.Toggle(5)
	assert.True(t, s.SetFilter(AvailabilityFilter{At: at.Add(time.Hour), Floor: &second}))
	assert.Zero(t, s.Len())

	s.Toggle(5)
	assert.True(t, s.SetFilter(AvailabilityFilter{At: at.Add(time.Hour)}))
	assert.Zero(t, s.Len())
	assert.Nil(t, s.Filter().Floor)
}
