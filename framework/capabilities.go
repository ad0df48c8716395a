package framework

// Capabilities is a type alias for a list of strings representing features that the server
// under test is expected to support in the current run. Each string is a "recipe/feature"
// pair resolved from the capability matrix and the run's active backend selections.
type Capabilities []string

// Has returns true if the specified string appears in the list.
func (cs Capabilities) Has(name string) bool {
	for _, c := range cs {
		if c == name {
			return true
		}
	}
	return false
}
