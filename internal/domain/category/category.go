// Package category defines the fixed table of rating categories: named
// predicates over map feature tags.
package category

import (
	"fmt"
	"strings"

	"github.com/okian/racerank/internal/domain/model"
)

// Overall is the category with no map filter.
const Overall = "overall"

// Category is a named filter over maps.
type Category struct {
	Name  string
	match func(model.MapInfo) bool
}

// Matches reports whether a record on a map with the given info belongs to the
// category. Maps without info only belong to Overall.
func (c Category) Matches(info model.MapInfo, known bool) bool {
	if c.match == nil {
		return true
	}
	if !known {
		return false
	}
	return c.match(info)
}

// table is ordered; All returns categories in this order.
var table = []Category{ //nolint:gochecknoglobals // fixed configuration-level table
	{Name: Overall},
	{Name: "rocket", match: weapon("rl")},
	{Name: "plasma", match: weapon("pg")},
	{Name: "grenade", match: weapon("gl")},
	{Name: "slick", match: function("slick")},
	{Name: "tele", match: function("tele")},
	{Name: "bfg", match: weapon("bfg")},
	{Name: "strafe", match: strafeOnly},
}

var aliases = map[string]string{ //nolint:gochecknoglobals // fixed configuration-level table
	"rl": "rocket",
	"pg": "plasma",
	"gl": "grenade",
}

// strafeWeapons are the only weapons a strafe map may carry.
var strafeWeapons = map[string]struct{}{"mg": {}, "sg": {}, "gt": {}} //nolint:gochecknoglobals // fixed set

// All returns every category in table order.
func All() []Category {
	out := make([]Category, len(table))
	copy(out, table)
	return out
}

// Names returns every category name in table order.
func Names() []string {
	out := make([]string, len(table))
	for i, c := range table {
		out[i] = c.Name
	}
	return out
}

// Lookup resolves a category name or alias (case-insensitive).
func Lookup(name string) (Category, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[n]; ok {
		n = canonical
	}
	for _, c := range table {
		if c.Name == n {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

func weapon(tag string) func(model.MapInfo) bool {
	return func(m model.MapInfo) bool { return hasTag(m.Weapons, tag) }
}

func function(tag string) func(model.MapInfo) bool {
	return func(m model.MapInfo) bool { return hasTag(m.Functions, tag) }
}

func strafeOnly(m model.MapInfo) bool {
	for _, w := range tags(m.Weapons) {
		if _, ok := strafeWeapons[w]; !ok {
			return false
		}
	}
	return true
}

func hasTag(list, tag string) bool {
	for _, t := range tags(list) {
		if t == tag {
			return true
		}
	}
	return false
}

func tags(list string) []string {
	parts := strings.Split(strings.ToLower(list), ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
