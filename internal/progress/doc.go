// Package progress turns sweep state changes into immutable snapshots that
// can be read by pull (Latest) or push (Subscribe).
//
// Push subscribers hold a one-slot buffer. A new snapshot replaces an
// undelivered one, so slow readers skip intermediate ticks but always end
// with the most recent state. Sinks mirror every snapshot to an external
// system such as an MQTT broker.
package progress
