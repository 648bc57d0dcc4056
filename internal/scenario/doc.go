// Package scenario loads the benchmark scenario suite for a sweep. A suite is
// derived from a seed, so every model in one sweep sees byte-identical prompts
// in the same order.
package scenario
