// Package service orchestrates the anonymization pipeline and reminder lookup.
//
// Storage and resolver dependencies are declared as interfaces here, in the
// consumer package, so handlers can be tested against mocks.
package service
