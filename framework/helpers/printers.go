package helpers

import (
	"fmt"
	"io"
)

// MustFprintln and MustFprintf wrap the fmt equivalents so that report-writing code
// does not have to check an error on every line. A write failure on the report
// stream is unrecoverable anyway.

func MustFprintln(w io.Writer, a ...any) {
	if _, err := fmt.Fprintln(w, a...); err != nil {
		panic(err)
	}
}

func MustFprintf(w io.Writer, format string, a ...any) {
	if _, err := fmt.Fprintf(w, format, a...); err != nil {
		panic(err)
	}
}
