package rules

import (
	"fmt"
	"sort"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/expr"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/query"
)

// itemAliases are the names a condition may use for the item under test.
var itemAliases = []string{"p", "product", "item"}

// predicates expose the catalog predicate library by name.
var predicates = expr.Env{
	"Category":       itemStringPredicate("Category", catalog.Category),
	"Brand":          itemStringPredicate("Brand", catalog.Brand),
	"HasFeature":     itemStringPredicate("HasFeature", catalog.HasFeature),
	"Price":          itemNumber("Price", catalog.Price),
	"EffectivePrice": itemNumber("EffectivePrice", catalog.EffectivePrice),
	"Rating":         itemNumber("Rating", catalog.Rating),
	"Discount":       itemNumber("Discount", catalog.Discount),
	"Reviews":        itemNumber("Reviews", func(it *catalog.Item) float64 { return float64(catalog.Reviews(it)) }),
	"Stock":          itemNumber("Stock", func(it *catalog.Item) float64 { return float64(catalog.Stock(it)) }),
	"ShippingTime":   itemNumber("ShippingTime", func(it *catalog.Item) float64 { return float64(catalog.ShippingTime(it)) }),
	"StockAvailable": expr.Function("StockAvailable", func(args []expr.Value) (expr.Value, error) {
		it, err := itemArg("StockAvailable", args, 1)
		if err != nil {
			return expr.Null(), err
		}
		return expr.Bool(catalog.StockAvailable(it)), nil
	}),
}

// baseEnv holds everything that does not depend on the item, user or prefs.
var baseEnv = expr.Merge(expr.Standard(), predicates)

// Bindings returns the complete environment for evaluating conditions
// against one item.
func Bindings(it *catalog.Item, user query.UserContext, rec prefs.Record) expr.Env {
	env := expr.Merge(baseEnv, Context(user, rec))
	bindItem(env, it)
	return env
}

// Context returns the user and prefs bindings, which stay fixed across the
// items of a ranking pass.
func Context(user query.UserContext, rec prefs.Record) expr.Env {
	return expr.Env{
		"user":  UserValue(user),
		"prefs": PrefsValue(rec),
	}
}

// Vocabulary lists every name a condition may reference, sorted.
func Vocabulary() []string {
	env := Bindings(&catalog.Item{}, query.UserContext{}, prefs.Default())
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func bindItem(env expr.Env, it *catalog.Item) {
	v := ItemValue(it)
	for _, alias := range itemAliases {
		env[alias] = v
	}
}

// ItemValue exposes an item as a record. The similarity fields exist only
// when the item carries a similarity score.
func ItemValue(it *catalog.Item) expr.Value {
	if it == nil {
		it = &catalog.Item{}
	}

	fields := map[string]expr.Value{
		"id":                 expr.Number(float64(it.ID)),
		"name":               expr.String(it.Name),
		"category":           expr.String(it.Category),
		"brand":              expr.String(it.Brand),
		"price":              expr.Number(it.Price),
		"discount":           expr.Number(it.Discount),
		"rating":             expr.Number(it.Rating),
		"reviews":            expr.Int(it.Reviews),
		"stock":              expr.Int(it.Stock),
		"shipping_time_days": expr.Null(),
		"description":        expr.String(it.Description),
		"tags":               expr.Strings(it.Tags),
	}
	if it.ShippingTimeDays != nil {
		fields["shipping_time_days"] = expr.Int(*it.ShippingTimeDays)
	}
	if it.Similarity != nil {
		fields["similarity"] = expr.Number(*it.Similarity)
		fields["match_score"] = expr.Number(*it.Similarity)
	}
	return expr.Record("item", it, fields)
}

// UserValue exposes the user context. Unset values are null.
func UserValue(user query.UserContext) expr.Value {
	budget := expr.Null()
	if user.Budget != nil {
		budget = expr.Number(*user.Budget)
	}
	return expr.Record("user", nil, map[string]expr.Value{
		"budget":             budget,
		"preferred_brand":    optionalString(user.PreferredBrand),
		"min_rating":         expr.Number(user.MinRating),
		"interest_category":  optionalString(user.InterestCategory),
		"preferred_category": optionalString(user.InterestCategory),
	})
}

// PrefsValue exposes the preference record under its persisted field names.
func PrefsValue(rec prefs.Record) expr.Value {
	return expr.Record("prefs", nil, map[string]expr.Value{
		"brand_weights":        expr.NumberMap(rec.BrandWeights),
		"category_weights":     expr.NumberMap(rec.CategoryWeights),
		"price_sensitivity":    expr.Number(rec.PriceSensitivity),
		"rating_weight":        expr.Number(rec.RatingWeight),
		"brand_loyalty":        expr.Number(rec.BrandLoyalty),
		"loyalty_points":       expr.Int(rec.LoyaltyPoints),
		"preferred_brand_temp": optionalString(rec.PreferredBrandTemp),
	})
}

func optionalString(s string) expr.Value {
	if s == "" {
		return expr.Null()
	}
	return expr.String(s)
}

func itemArg(name string, args []expr.Value, arity int) (*catalog.Item, error) {
	if err := expr.CheckArity(name, args, arity, arity); err != nil {
		return nil, err
	}
	it, ok := args[0].Native().(*catalog.Item)
	if !ok {
		return nil, fmt.Errorf("%w: %s() expects an item, got %s", expr.ErrType, name, args[0].Kind())
	}
	return it, nil
}

func itemNumber(name string, fn func(*catalog.Item) float64) expr.Value {
	return expr.Function(name, func(args []expr.Value) (expr.Value, error) {
		it, err := itemArg(name, args, 1)
		if err != nil {
			return expr.Null(), err
		}
		return expr.Number(fn(it)), nil
	})
}

func itemStringPredicate(name string, fn func(*catalog.Item, string) bool) expr.Value {
	return expr.Function(name, func(args []expr.Value) (expr.Value, error) {
		it, err := itemArg(name, args, 2)
		if err != nil {
			return expr.Null(), err
		}
		s, err := expr.StringArg(name, args, 1)
		if err != nil {
			return expr.Null(), err
		}
		return expr.Bool(fn(it, s)), nil
	})
}
