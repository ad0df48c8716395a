// Package framework contains the low-level implementation of test harness infrastructure
// that can be reused for different kinds of tests. The base package contains shared
// types such as Logger; other components are in the subpackages harness and lmtest.
//
// The general model is:
//
// 1. The test harness owns the lifecycle of a server process under test: it starts the
// real server binary, waits for it to become ready, relays its output, and shuts it
// down when the tests are done.
//
// 2. The test harness talks to the running server over plain HTTP, the same way any
// client application would.
//
// 3. There is a general notion of a test context which is similar to Go's testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results.
//
// The domain-specific code that knows what is being tested is responsible for providing
// the command line of the server process, the request and response types for the
// server's HTTP API, and domain-specific test APIs on top of the test context.
package framework
