// Package l5render owns Layer 5 (Render) of the posture data model.
//
// Responsibilities: drawing the skeleton overlay on top of the source
// frame. Bones and keypoint markers are gated by their own low confidence
// floor and are drawn for every pose, whether or not the pose passed the
// alignment gate.
// Key types: Surface, SkeletonRenderer, KeypointRenderer, Overlay,
// ImageSurface, Recorder.
//
// Dependency rule: L5 may depend on L1, but never on L2-L4.
package l5render
