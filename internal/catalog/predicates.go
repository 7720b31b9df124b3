package catalog

import "strings"

// The predicate library. Every function accepts a nil item and returns the
// documented default: price 0, rating 0, stock 0, discount 0, reviews 0,
// shipping DefaultShippingDays, no tags.

// Category reports whether the item's category equals c, case-insensitively.
func Category(it *Item, c string) bool {
	if it == nil {
		return c == ""
	}
	return strings.EqualFold(it.Category, c)
}

// Brand reports whether the item's brand equals b, case-insensitively.
func Brand(it *Item, b string) bool {
	if it == nil {
		return b == ""
	}
	return strings.EqualFold(it.Brand, b)
}

// Price returns the list price.
func Price(it *Item) float64 {
	if it == nil {
		return 0
	}
	return it.Price
}

// EffectivePrice returns the price after discount:
// price * (1 - discount/100). All discount math goes through here.
func EffectivePrice(it *Item) float64 {
	return Price(it) * (1 - Discount(it)/100)
}

// Rating returns the customer rating.
func Rating(it *Item) float64 {
	if it == nil {
		return 0
	}
	return it.Rating
}

// Reviews returns the review count.
func Reviews(it *Item) int {
	if it == nil {
		return 0
	}
	return it.Reviews
}

// HasFeature reports whether the item carries tag f, case-insensitively.
func HasFeature(it *Item, f string) bool {
	if it == nil {
		return false
	}
	for _, tag := range it.Tags {
		if strings.EqualFold(tag, f) {
			return true
		}
	}
	return false
}

// Stock returns the quantity in stock.
func Stock(it *Item) int {
	if it == nil {
		return 0
	}
	return it.Stock
}

// StockAvailable reports whether at least one unit is in stock.
func StockAvailable(it *Item) bool {
	return Stock(it) > 0
}

// Discount returns the discount percentage.
func Discount(it *Item) float64 {
	if it == nil {
		return 0
	}
	return it.Discount
}

// ShippingTime returns the shipping lead time in days.
func ShippingTime(it *Item) int {
	if it == nil || it.ShippingTimeDays == nil {
		return DefaultShippingDays
	}
	return *it.ShippingTimeDays
}
