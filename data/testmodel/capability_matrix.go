package testmodel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lemonade-sdk/server-test-harness/framework"

	"golang.org/x/exp/slices"
)

// CapabilityMatrix describes which API features each kind of wrapped server is expected
// to support. It is built once per run, from the embedded capability data plus any
// command-line overrides, and is never modified afterward. Lookups are total: a pair
// that does not appear in the matrix is simply unsupported.
type CapabilityMatrix struct {
	support map[string]map[string]bool
}

// NewCapabilityMatrix creates a matrix from a server name -> feature name -> supported
// mapping. The input map is copied, so later changes to it do not affect the matrix.
func NewCapabilityMatrix(support map[string]map[string]bool) CapabilityMatrix {
	copied := make(map[string]map[string]bool, len(support))
	for server, features := range support {
		featuresCopied := make(map[string]bool, len(features))
		for feature, supported := range features {
			featuresCopied[feature] = supported
		}
		copied[server] = featuresCopied
	}
	return CapabilityMatrix{support: copied}
}

// Supports reports whether the matrix marks the feature as supported for the given
// wrapped server. Unknown servers and unknown features are unsupported, never an error.
func (m CapabilityMatrix) Supports(server, feature string) bool {
	features, ok := m.support[server]
	if !ok {
		return false
	}
	return features[feature]
}

// Servers returns the wrapped server names that appear in the matrix, sorted.
func (m CapabilityMatrix) Servers() []string {
	ret := make([]string, 0, len(m.support))
	for server := range m.support {
		ret = append(ret, server)
	}
	slices.Sort(ret)
	return ret
}

// WithOverrides returns a copy of the matrix with each override applied. An override
// may add a pair the embedded data never mentioned.
func (m CapabilityMatrix) WithOverrides(overrides []CapabilityOverride) CapabilityMatrix {
	ret := NewCapabilityMatrix(m.support)
	for _, o := range overrides {
		features, ok := ret.support[o.Server]
		if !ok {
			features = make(map[string]bool)
			ret.support[o.Server] = features
		}
		features[o.Feature] = o.Supported
	}
	return ret
}

// Resolve flattens the matrix into the capability list for a run against the given
// wrapped server: one "server/feature" string per supported feature, sorted. Test code
// only ever sees this list.
func (m CapabilityMatrix) Resolve(server string) framework.Capabilities {
	var ret framework.Capabilities
	for feature, supported := range m.support[server] {
		if supported {
			ret = append(ret, server+"/"+feature)
		}
	}
	slices.Sort(ret)
	return ret
}

// CapabilityOverride is a single supported/unsupported decision from the command line
// that takes precedence over the embedded capability data.
type CapabilityOverride struct {
	Server    string
	Feature   string
	Supported bool
}

// ParseCapabilityOverride parses a command-line override of the form
// "server/feature=BOOL", for instance "llamacpp/tool_calls=false".
func ParseCapabilityOverride(s string) (CapabilityOverride, error) {
	name, value, found := strings.Cut(s, "=")
	if !found {
		return CapabilityOverride{}, fmt.Errorf("capability override %q is not in server/feature=BOOL form", s)
	}
	server, feature, found := strings.Cut(name, "/")
	if !found || server == "" || feature == "" {
		return CapabilityOverride{}, fmt.Errorf("capability override %q is not in server/feature=BOOL form", s)
	}
	supported, err := strconv.ParseBool(value)
	if err != nil {
		return CapabilityOverride{}, fmt.Errorf("capability override %q has a non-boolean value", s)
	}
	return CapabilityOverride{Server: server, Feature: feature, Supported: supported}, nil
}
