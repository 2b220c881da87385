// Package archive decodes device .LOX bundles: a compressed tar stream whose
// members are text logs and semicolon separated tables. Which members are
// decoded, and how, is described by a Registry of recipes.
package archive

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Member categories produced by the default registry.
const (
	CategoryNetworkConfig = "Network config"
	CategoryTherapyConfig = "Therapy config"
	CategoryMachineConfig = "Machine config"
	CategorySystemEvents  = "System events"
	CategoryUserEvents    = "User events"
	CategoryPressure      = "Pressure"
	CategoryFluids        = "Fluids"
	CategorySyringe       = "Syringe"
	CategoryPLC           = "PLC"
	CategoryTare          = "Tare"
	CategoryPLI           = "PLI"
	CategoryPLL           = "PLL"
)

var (
	// ErrDuplicateExtension is returned when a registry lists an extension twice
	ErrDuplicateExtension = errors.New("duplicate registry extension")
	// ErrInvalidRecipe is returned when a recipe cannot produce a document
	ErrInvalidRecipe = errors.New("invalid decode recipe")
)

// Entry maps a member extension to its category and decode recipe.
// An Ignore entry marks members that are known but never decoded.
type Entry struct {
	Extension string
	Category  string
	Recipe    Recipe
	Ignore    bool
}

// Registry is an immutable extension lookup table.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry builds a registry, validating every recipe.
// Extensions are matched case-insensitively.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		ext := strings.ToLower(strings.TrimPrefix(e.Extension, "."))
		if _, ok := r.entries[ext]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateExtension, ext)
		}
		if !e.Ignore {
			if err := e.Recipe.Validate(); err != nil {
				return nil, fmt.Errorf("extension %s: %w", ext, err)
			}
		}
		e.Extension = ext
		r.entries[ext] = e
	}
	return r, nil
}

// Lookup returns the entry registered for ext.
func (r *Registry) Lookup(ext string) (Entry, bool) {
	e, ok := r.entries[strings.ToLower(ext)]
	return e, ok
}

// Entries returns every entry sorted by extension.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

var defaultRegistry = mustRegistry(
	Entry{Extension: "pci", Category: CategoryNetworkConfig, Recipe: Recipe{StepASCII, StepSplit, StepStrip}},
	Entry{Extension: "pca", Ignore: true},
	Entry{Extension: "pcu", Category: CategoryTherapyConfig, Recipe: Recipe{StepASCII, StepSplit, StepStrip}},
	Entry{Extension: "pcm", Category: CategoryMachineConfig, Recipe: Recipe{StepASCII, StepSplit}},
	Entry{Extension: "plr", Category: CategorySystemEvents, Recipe: Recipe{StepASCII, StepSplit, StepStrip, StepNoEmptyLines}},
	Entry{Extension: "ple", Category: CategoryUserEvents, Recipe: Recipe{StepUTF16, StepSplit, StepStrip, StepCSV}},
	Entry{Extension: "plp", Category: CategoryPressure, Recipe: Recipe{StepUTF8, StepSplit, StepStrip, StepCSV}},
	Entry{Extension: "pls", Category: CategoryFluids, Recipe: Recipe{StepASCII, StepSplit, StepStrip, StepCSV}},
	Entry{Extension: "ply", Category: CategorySyringe, Recipe: Recipe{StepASCII, StepSplit, StepStrip, StepCSV}},
	Entry{Extension: "plc", Category: CategoryPLC, Recipe: Recipe{StepASCII, StepSplit, StepStrip, StepCSV}},
	Entry{Extension: "plt", Category: CategoryTare, Recipe: Recipe{StepASCII, StepSplit, StepStrip, StepCSV}},
	Entry{Extension: "pli", Category: CategoryPLI, Recipe: Recipe{StepASCII, StepSplit, StepStrip, StepCSV}},
	Entry{Extension: "pll", Category: CategoryPLL, Recipe: Recipe{StepASCII, StepSplit, StepStrip, StepCSV}},
)

// DefaultRegistry returns the registry for the known device member types.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func mustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}
