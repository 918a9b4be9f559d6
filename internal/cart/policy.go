package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

// Mutation changes a cart in place or returns an error and leaves it untouched.
type Mutation func(c *models.Cart) error

func checkArgs(productID string, price decimal.Decimal) error {
	if strings.TrimSpace(productID) == "" {
		return global.Validation("productId is required")
	}
	if models.IsReservedCartKey(productID) {
		return global.Validation("productId must not be \"total\" or \"count\"")
	}
	if price.IsNegative() {
		return global.Validation("price must not be negative")
	}
	return nil
}

func ensureLines(c *models.Cart) {
	if c.Lines == nil {
		c.Lines = map[string]int{}
	}
}

// AddLine creates the line at quantity one or bumps it by one.
func AddLine(productID string, price decimal.Decimal) Mutation {
	return func(c *models.Cart) error {
		if err := checkArgs(productID, price); err != nil {
			return err
		}
		ensureLines(c)
		c.Lines[productID]++
		c.Count++
		c.Total = c.Total.Add(price)
		return nil
	}
}

// IncreaseLine bumps an existing line by one.
func IncreaseLine(productID string, price decimal.Decimal) Mutation {
	return func(c *models.Cart) error {
		if err := checkArgs(productID, price); err != nil {
			return err
		}
		if _, ok := c.Quantity(productID); !ok {
			return global.InvalidState("product %s is not in the cart", productID)
		}
		c.Lines[productID]++
		c.Count++
		c.Total = c.Total.Add(price)
		return nil
	}
}

// DecreaseLine drops an existing line by one and deletes it when it reaches
// zero. A result with a negative total or count is rejected.
func DecreaseLine(productID string, price decimal.Decimal) Mutation {
	return func(c *models.Cart) error {
		if err := checkArgs(productID, price); err != nil {
			return err
		}
		qty, ok := c.Quantity(productID)
		if !ok {
			return global.InvalidState("product %s is not in the cart", productID)
		}
		total := c.Total.Sub(price)
		count := c.Count - 1
		if total.IsNegative() || count < 0 {
			return global.InvalidState("cart cannot go below zero")
		}
		if qty <= 1 {
			delete(c.Lines, productID)
		} else {
			c.Lines[productID] = qty - 1
		}
		c.Count = count
		c.Total = total
		return nil
	}
}

// RemoveLine deletes a line and subtracts quantity × price from the total.
func RemoveLine(productID string, price decimal.Decimal) Mutation {
	return func(c *models.Cart) error {
		if err := checkArgs(productID, price); err != nil {
			return err
		}
		qty, ok := c.Quantity(productID)
		if !ok {
			return global.InvalidState("product %s is not in the cart", productID)
		}
		total := c.Total.Sub(price.Mul(decimal.NewFromInt(int64(qty))))
		count := c.Count - qty
		if total.IsNegative() || count < 0 {
			return global.InvalidState("cart cannot go below zero")
		}
		delete(c.Lines, productID)
		c.Count = count
		c.Total = total
		return nil
	}
}
