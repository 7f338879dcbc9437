// Package l1keypoints owns Layer 1 (Keypoints) of the posture data model.
//
// Responsibilities: the per-pose keypoint snapshot produced by the external
// pose estimator, the fixed body-part layout, and the skeleton topology used
// for rendering.
// Key types: BodyPart, Keypoint, Pose, Bone, Skeleton.
//
// Dependency rule: L1 depends on nothing else in internal/pose.
package l1keypoints
