package recipe

import (
	"maps"
	"sort"

	"github.com/agent462/hostlist/internal/config"
)

// BuiltinRecipes returns all built-in recipes keyed by name.
func BuiltinRecipes() map[string]config.Recipe {
	return map[string]config.Recipe{
		"inventory": {
			Description: "Count and print every configured host",
			Steps:       []string{"count @all", "string @all"},
		},
		"sweep": {
			Description: "Hosts of CIDR ($1) accepting connections on PORT ($2)",
			Steps:       []string{"cidr --probe $2 $1"},
		},
		"unlisted": {
			Description: "Hosts of CIDR ($1) answering on port 22 that no group lists",
			Steps: []string{
				"up = cidr --probe 22 $1",
				"subtract @up @all",
			},
		},
		"overlap": {
			Description: "Hosts listed in both operands and how many there are",
			Steps: []string{
				"both = intersect $1 $2",
				"string @both",
				"count @both",
			},
		},
	}
}

// IsBuiltin reports whether name is a built-in recipe.
func IsBuiltin(name string) bool {
	_, ok := BuiltinRecipes()[name]
	return ok
}

// ResolveRecipe looks up a recipe by name. User-defined recipes in cfg
// override built-ins. Returns the recipe, whether a built-in exists for
// that name, and whether the recipe was found at all.
func ResolveRecipe(name string, cfg *config.Config) (config.Recipe, bool, bool) {
	builtin, isBuiltin := BuiltinRecipes()[name]

	if cfg != nil {
		if r, ok := cfg.Recipes[name]; ok {
			return r, isBuiltin, true
		}
	}
	return builtin, isBuiltin, isBuiltin
}

// MergedRecipes returns built-in recipes merged with user-defined recipes.
// User recipes override built-ins with the same name.
func MergedRecipes(cfg *config.Config) map[string]config.Recipe {
	merged := BuiltinRecipes()
	if cfg != nil {
		maps.Copy(merged, cfg.Recipes)
	}
	return merged
}

// Names returns the merged recipe names in sorted order.
func Names(cfg *config.Config) []string {
	merged := MergedRecipes(cfg)
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
