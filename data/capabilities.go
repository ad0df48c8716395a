package data

import (
	"github.com/lemonade-sdk/server-test-harness/data/testmodel"
)

const capabilitiesFile = "capabilities.yaml"

// LoadCapabilityMatrix parses the embedded capability data into a matrix. Command-line
// overrides are not applied here; the caller merges those afterward.
func LoadCapabilityMatrix() (testmodel.CapabilityMatrix, error) {
	source, err := LoadDataFile(capabilitiesFile)
	if err != nil {
		return testmodel.CapabilityMatrix{}, err
	}
	var parsed struct {
		Capabilities map[string]map[string]bool `json:"capabilities"`
	}
	if err := source.ParseInto(&parsed); err != nil {
		return testmodel.CapabilityMatrix{}, err
	}
	return testmodel.NewCapabilityMatrix(parsed.Capabilities), nil
}
