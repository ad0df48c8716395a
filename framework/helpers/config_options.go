package helpers

// ConfigOption is the building block of the vararg functional-options pattern used by
// constructors like harness.StartServer.
type ConfigOption[T any] interface {
	Configure(*T) error
}

// ApplyOptions applies each option to the target in order, stopping at the first
// error. The separate U parameter lets callers declare their own named option type
// (for instance harness.StartOption) and still pass it here.
func ApplyOptions[T any, U ConfigOption[T]](target *T, options ...U) error {
	for _, o := range options {
		if err := o.Configure(target); err != nil {
			return err
		}
	}
	return nil
}
