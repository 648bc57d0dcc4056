// Package provider defines the protocol adapter contract every LLM provider
// family implements (build a request, parse a response, classify a failure),
// the provider table that maps configured providers to adapters, and the HTTP
// client that drives one scenario call through an adapter.
package provider
