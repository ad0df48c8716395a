// Package servertests contains the domain-specific server test logic.
//
// Tests in this package use other packages as follows:
//
// data: capability matrix and hardware fixture data, with their schemas and loader
//
// lmtest: the basic test scope framework
//
// harness: process-level control of the server binary under test
//
// servicedef: types used in communication with the server's HTTP API
package servertests
