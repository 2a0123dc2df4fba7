// Package dev provides watch mode: continuous, debounced regeneration of
// the route artifact.
//
// This package implements:
//   - Polling file watching of the route sources
//   - The watch coordinator state machine
//   - A WebSocket stream of pass events
//   - A status server with health, routes and metrics endpoints
//
// # Architecture
//
//   - Watcher: polls the watched paths and emits change events
//   - Coordinator: debounces events into single-flight passes
//   - StatusServer: serves the last pass and route table over HTTP
//   - Broadcaster: notifies WebSocket subscribers after every pass
//
// # Usage
//
//	w := dev.NewWatcher(dev.WatcherConfig{Paths: dev.CollectWatchPaths(cfg)})
//	c := dev.NewCoordinator(dev.CoordinatorOptions{
//	    Job:         job,
//	    Runner:      p,
//	    Source:      w,
//	    InitialPass: true,
//	})
//
//	outcomes, err := c.Watch(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for o := range outcomes {
//	    status.Observe(o)
//	}
//
// # Event Protocol
//
// Subscribers connect to /events via WebSocket. Messages are JSON-encoded:
//
//	{"type": "generated", "generation": 3, "routes": 12, "changed": true, "durationMs": 4}
//	{"type": "error", "generation": 4, "error": "...", "durationMs": 2}
package dev
