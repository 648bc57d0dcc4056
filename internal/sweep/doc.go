// Package sweep implements the sweep scheduler: it validates a launch,
// loads one scenario set per sweep, runs every model through the provider
// client under a global and a per-provider concurrency cap, honours
// pause/resume/cancel at scenario boundaries, publishes progress snapshots,
// and persists completed model runs as evaluation records.
//
// A sweep's lifecycle follows pending → running ⇄ paused → finished, with
// cancelled reachable from running or paused. Pause and cancel are
// cooperative: in-flight provider calls finish and are tallied, and workers
// observe the request before starting their next scenario.
package sweep
