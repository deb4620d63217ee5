// Package tracking owns single-target tracking: the constant-velocity
// motion filter, the visual tracker capability it is fused with, and the
// orchestrator that runs the NoTarget / Tracking / Coasting session
// lifecycle one frame at a time.
//
// Key types: Orchestrator, MotionFilter, RegionRequests, Result.
//
// The package is independent of any image library: frames are a type
// parameter and the appearance tracker is injected through TrackerFactory.
// Nothing here draws or performs I/O.
package tracking
