package data

import (
	"github.com/lemonade-sdk/server-test-harness/data/testmodel"
)

const hardwareFixturesDir = "hardware-fixtures"

// LoadHardwareFixtures parses every embedded hardware fixture document. The order is
// the lexical order of the file names.
func LoadHardwareFixtures() ([]testmodel.HardwareFixture, error) {
	sources, err := LoadAllDataFiles(hardwareFixturesDir)
	if err != nil {
		return nil, err
	}
	ret := make([]testmodel.HardwareFixture, 0, len(sources))
	for _, source := range sources {
		var fixture testmodel.HardwareFixture
		if err := source.ParseInto(&fixture); err != nil {
			return nil, err
		}
		ret = append(ret, fixture)
	}
	return ret, nil
}
