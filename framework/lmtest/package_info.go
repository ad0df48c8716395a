// Package lmtest contains a test runner framework used by the harness to run integration
// tests against a lemonade-server binary.
//
// This is conceptually similar to Go's testing package, but tests are defined at runtime
// rather than being compiled into a test binary, so the harness can filter them with
// command-line parameters, attach capability-based skip conditions, and report results
// in its own formats.
package lmtest
