package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	cartTotalKey = "total"
	cartCountKey = "count"
)

var (
	minQuantity = decimal.NewFromInt(math.MinInt)
	maxQuantity = decimal.NewFromInt(math.MaxInt)
)

// IsReservedCartKey reports whether id collides with an aggregate key of
// the flat wire shape and so cannot name a product line.
func IsReservedCartKey(id string) bool {
	return id == cartTotalKey || id == cartCountKey
}

// Cart is embedded in a User. Lines maps a product id to its quantity;
// Total and Count are maintained incrementally by the cart operations.
type Cart struct {
	Lines map[string]int  `bson:"lines"`
	Total decimal.Decimal `bson:"total"`
	Count int             `bson:"count"`
}

func NewCart() Cart {
	return Cart{Lines: map[string]int{}, Total: decimal.Zero}
}

func (c Cart) Quantity(productID string) (int, bool) {
	qty, ok := c.Lines[productID]
	return qty, ok
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0 && c.Count == 0 && c.Total.IsZero()
}

func (c Cart) Clone() Cart {
	out := Cart{Lines: make(map[string]int, len(c.Lines)), Total: c.Total, Count: c.Count}
	for id, qty := range c.Lines {
		out.Lines[id] = qty
	}
	return out
}

// ProductIDs returns the line keys in a stable order.
func (c Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	for id := range c.Lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Consistent reports whether Count equals the sum of the line quantities
// and no line has dropped below one.
func (c Cart) Consistent() bool {
	if c.Count < 0 || c.Total.IsNegative() {
		return false
	}
	sum := 0
	for _, qty := range c.Lines {
		if qty < 1 {
			return false
		}
		sum += qty
	}
	return sum == c.Count
}

// MarshalJSON writes the flat wire shape {"<productId>": qty, "total": t, "count": c}.
func (c Cart) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(c.Lines)+2)
	for id, qty := range c.Lines {
		if IsReservedCartKey(id) {
			return nil, fmt.Errorf("cart line %q uses a reserved key", id)
		}
		flat[id] = qty
	}
	flat[cartTotalKey] = json.Number(c.Total.String())
	flat[cartCountKey] = c.Count
	return json.Marshal(flat)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if err := checkDuplicateKeys(data); err != nil {
		return err
	}

	out := NewCart()
	for key, raw := range flat {
		switch key {
		case cartTotalKey:
			if err := out.Total.UnmarshalJSON(raw); err != nil {
				return fmt.Errorf("cart total: %w", err)
			}
		case cartCountKey:
			n, err := decodeQuantity(raw)
			if err != nil {
				return fmt.Errorf("cart count: %w", err)
			}
			out.Count = n
		default:
			n, err := decodeQuantity(raw)
			if err != nil {
				return fmt.Errorf("cart line %q: %w", key, err)
			}
			out.Lines[key] = n
		}
	}
	*c = out
	return nil
}

func decodeQuantity(raw json.RawMessage) (int, error) {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%s is not a whole number", d.String())
	}
	if d.LessThan(minQuantity) || d.GreaterThan(maxQuantity) {
		return 0, fmt.Errorf("%s is out of range", d.String())
	}
	return int(d.IntPart()), nil
}

// checkDuplicateKeys refuses a body that names total or count twice, which
// would otherwise let a later key silently replace the aggregate.
func checkDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	seen := make(map[string]bool, 2)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if IsReservedCartKey(key) {
			if seen[key] {
				return fmt.Errorf("cart key %q appears more than once", key)
			}
			seen[key] = true
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
	}
	return nil
}
