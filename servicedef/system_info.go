package servicedef

import (
	"encoding/json"
	"fmt"

	o "github.com/lemonade-sdk/server-test-harness/framework/opt"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"golang.org/x/exp/slices"
)

// SystemInfoReport is the parsed response of GET /system-info. The recipe and backend
// names are dynamic keys decided by the server build, so the document is parsed with a
// streaming reader instead of static struct tags. Raw holds the whole document for ad
// hoc assertions on the hardware fields.
type SystemInfoReport struct {
	Raw     ldvalue.Value
	Recipes map[string]RecipeReport
}

type RecipeReport struct {
	Backends map[string]BackendReport
}

// BackendReport is the support/availability status of one (recipe, backend) pair.
// Supported means the hardware can run it; Available means the backend software is
// installed. Error is set when unsupported, Version when installed.
type BackendReport struct {
	Supported bool
	Available bool
	Devices   []string
	Error     o.Maybe[string]
	Version   o.Maybe[string]
}

// ParseSystemInfoReport parses a /system-info response body.
func ParseSystemInfoReport(data []byte) (SystemInfoReport, error) {
	report := SystemInfoReport{Recipes: make(map[string]RecipeReport)}
	if err := json.Unmarshal(data, &report.Raw); err != nil {
		return SystemInfoReport{}, fmt.Errorf("malformed system-info response: %w", err)
	}

	r := jreader.NewReader(data)
	for obj := r.Object(); obj.Next(); {
		if string(obj.Name()) != "recipes" {
			continue // unread values are skipped by the reader
		}
		for recipesObj := r.Object(); recipesObj.Next(); {
			recipeName := string(recipesObj.Name())
			recipe := RecipeReport{Backends: make(map[string]BackendReport)}
			for recipeObj := r.Object(); recipeObj.Next(); {
				if string(recipeObj.Name()) != "backends" {
					continue
				}
				for backendsObj := r.Object(); backendsObj.Next(); {
					backendName := string(backendsObj.Name())
					recipe.Backends[backendName] = readBackendReport(&r)
				}
			}
			report.Recipes[recipeName] = recipe
		}
	}
	if err := r.Error(); err != nil {
		return SystemInfoReport{}, fmt.Errorf("malformed system-info response: %w", err)
	}
	return report, nil
}

func readBackendReport(r *jreader.Reader) BackendReport {
	var b BackendReport
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "supported":
			b.Supported = r.Bool()
		case "available":
			b.Available = r.Bool()
		case "error":
			if s, ok := r.StringOrNull(); ok {
				b.Error = o.Some(s)
			}
		case "version":
			if s, ok := r.StringOrNull(); ok {
				b.Version = o.Some(s)
			}
		case "devices":
			for arr := r.Array(); arr.Next(); {
				b.Devices = append(b.Devices, r.String())
			}
		}
	}
	return b
}

// HasRecipe reports whether the given recipe appears in the report at all.
func (s SystemInfoReport) HasRecipe(recipe string) bool {
	_, ok := s.Recipes[recipe]
	return ok
}

// Backend returns the report for one (recipe, backend) pair, if present.
func (s SystemInfoReport) Backend(recipe, backend string) (BackendReport, bool) {
	r, ok := s.Recipes[recipe]
	if !ok {
		return BackendReport{}, false
	}
	b, ok := r.Backends[backend]
	return b, ok
}

// RecipeNames returns the recipe names in the report, sorted.
func (s SystemInfoReport) RecipeNames() []string {
	names := make([]string, 0, len(s.Recipes))
	for name := range s.Recipes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
