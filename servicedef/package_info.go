// Package servicedef contains definitions for the HTTP API that the server under test
// exposes: request and response types for each endpoint, endpoint path constants, and
// the names of the optional features that the capability matrix describes.
//
// The package is used by the test harness, but can also be imported by any other
// Go-based tooling that talks to the server.
package servicedef
