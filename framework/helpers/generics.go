package helpers

// Ptr returns a pointer to the value. Useful for setting optional pointer-typed
// request fields inline.
func Ptr[V any](value V) *V { return &value }
