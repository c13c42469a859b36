package order

import (
	"sort"

	"github.com/example/dine-composer/internal/internaltypes"
)

// SkipSet is a sorted, de-duplicated set of ingredient ids to leave out of one unit.
type SkipSet []int64

func NewSkipSet(ids ...int64) SkipSet {
	if len(ids) == 0 {
		return SkipSet{}
	}
	out := make(SkipSet, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func (s SkipSet) Equal(o SkipSet) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s SkipSet) Contains(id int64) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Toggle returns a new set with id added or removed.
func (s SkipSet) Toggle(id int64) SkipSet {
	out := make([]int64, 0, len(s)+1)
	found := false
	for _, v := range s {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, id)
	}
	return NewSkipSet(out...)
}

// DishSelection holds one skip set per ordered unit of a dish.
type DishSelection struct {
	DishID int64
	units  []SkipSet
}

func NewDishSelection(dishID int64) *DishSelection {
	return &DishSelection{DishID: dishID}
}

func (d *DishSelection) Quantity() int { return len(d.units) }

// Units returns a copy of the per-unit skip sets in unit order.
func (d *DishSelection) Units() []SkipSet {
	out := make([]SkipSet, len(d.units))
	for i, u := range d.units {
		out[i] = append(SkipSet{}, u...)
	}
	return out
}

// SetQuantity appends empty skip sets when growing and truncates from the end when shrinking.
func (d *DishSelection) SetQuantity(n int) error {
	if n < 0 {
		return internaltypes.Invalid("quantity for dish %d must not be negative", d.DishID)
	}
	for len(d.units) < n {
		d.units = append(d.units, SkipSet{})
	}
	d.units = d.units[:n]
	return nil
}

// ToggleSkip adds or removes one ingredient from the unit at index unit.
func (d *DishSelection) ToggleSkip(unit int, ingredientID int64) error {
	if unit < 0 || unit >= len(d.units) {
		return internaltypes.Invalid("dish %d has no unit %d", d.DishID, unit+1)
	}
	d.units[unit] = d.units[unit].Toggle(ingredientID)
	return nil
}

// SetUnits replaces all units, normalising each skip set.
func (d *DishSelection) SetUnits(units []SkipSet) {
	d.units = make([]SkipSet, len(units))
	for i, u := range units {
		d.units[i] = NewSkipSet(u...)
	}
}

// Cart maps dish ids to their selections. Dishes at quantity zero are dropped.
type Cart map[int64]*DishSelection

func (c Cart) SetQuantity(dishID int64, n int) error {
	sel, ok := c[dishID]
	if !ok {
		if n < 0 {
			return internaltypes.Invalid("quantity for dish %d must not be negative", dishID)
		}
		if n == 0 {
			return nil
		}
		sel = NewDishSelection(dishID)
	}
	if err := sel.SetQuantity(n); err != nil {
		return err
	}
	if sel.Quantity() == 0 {
		delete(c, dishID)
		return nil
	}
	c[dishID] = sel
	return nil
}

func (c Cart) Increment(dishID int64) error {
	return c.SetQuantity(dishID, c.Quantity(dishID)+1)
}

func (c Cart) Decrement(dishID int64) error {
	q := c.Quantity(dishID)
	if q == 0 {
		return nil
	}
	return c.SetQuantity(dishID, q-1)
}

func (c Cart) Quantity(dishID int64) int {
	if sel, ok := c[dishID]; ok {
		return sel.Quantity()
	}
	return 0
}

func (c Cart) ToggleSkip(dishID int64, unit int, ingredientID int64) error {
	sel, ok := c[dishID]
	if !ok {
		return internaltypes.Invalid("dish %d is not in the cart", dishID)
	}
	return sel.ToggleSkip(unit, ingredientID)
}

// DishIDs returns the dish ids in ascending order.
func (c Cart) DishIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c Cart) Clear() {
	for id := range c {
		delete(c, id)
	}
}

type LineItem struct {
	DishID   int64   `json:"dishId"`
	Quantity int     `json:"quantity"`
	Skipped  SkipSet `json:"skippedIngredientIds"`
}

// Decompose turns the cart into the fewest line items that preserve every unit's
// customisation. A dish whose units all skip the same ingredients collapses into
// one line item; otherwise each unit becomes its own line item in unit order.
func Decompose(c Cart) []LineItem {
	var items []LineItem
	for _, id := range c.DishIDs() {
		sel := c[id]
		if sel == nil || sel.Quantity() == 0 {
			continue
		}
		if uniform(sel.units) {
			items = append(items, LineItem{
				DishID:   id,
				Quantity: sel.Quantity(),
				Skipped:  NewSkipSet(sel.units[0]...),
			})
			continue
		}
		for _, u := range sel.units {
			items = append(items, LineItem{DishID: id, Quantity: 1, Skipped: NewSkipSet(u...)})
		}
	}
	return items
}

func uniform(units []SkipSet) bool {
	for _, u := range units[1:] {
		if !u.Equal(units[0]) {
			return false
		}
	}
	return true
}

// Draft is a cart being composed for one booking, with the optional note sent along.
type Draft struct {
	Cart       Cart
	Dedication string
}

// Receipt is the backend's answer to an order submission.
type Receipt struct {
	OrderID    int64   `json:"orderId"`
	BookingID  int64   `json:"bookingId"`
	UserID     int64   `json:"userId"`
	TotalPrice float64 `json:"totalPrice"`
	Status     string  `json:"status"`
	Dedication string  `json:"dedicationNote,omitempty"`
}

// Submission is the order payload.
type Submission struct {
	UserID         int64      `json:"userId"`
	BookingID      int64      `json:"bookingId"`
	Items          []LineItem `json:"items"`
	DedicationNote string     `json:"dedicationNote,omitempty"`
}
