// Package l3alignment owns Layer 3 (Alignment) of the posture data model.
//
// Responsibilities: deciding whether a pose is analysable this tick
// (Gate) and classifying bilateral symmetry of six body regions
// (Analyzer). Both are stateless; identical poses always produce identical
// results.
// Key types: Gate, Check, Analyzer, Result, Region.
//
// Thresholds are raw capture pixels. They are not normalised by body
// scale or camera distance.
//
// Dependency rule: L3 may depend on L1, but never on L2 or L4+.
package l3alignment
