// Package roboroute provides the grid pathfinder behind the robot relay and the
// generic A* engine it is built on.
//
// It exposes three entry points:
//
//   - FindPath: shortest four-directional route through an occupancy grid.
//   - Search: run the generic algorithm to completion and get a Result.
//   - Stepper: iterate the search one expansion at a time to drive UIs or debugging tools.
//
// A single orchestrator owns the frontier. Neighbor expansion runs inline by
// default and can be fanned out to a worker pool with WithWorkers.
package roboroute
