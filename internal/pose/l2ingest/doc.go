// Package l2ingest owns Layer 2 (Ingest) of the posture data model.
//
// Responsibilities: holding the most recent detection batch so the
// asynchronous detection cadence can feed the continuous render loop.
// Key types: Slot, Batch, Stats.
//
// The slot keeps exactly one batch. A render tick may observe the same
// batch on several ticks when detection is slower than rendering, and a
// batch may be overwritten before any tick reads it when detection is
// faster. Both cases are counted in Stats rather than hidden.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2ingest
