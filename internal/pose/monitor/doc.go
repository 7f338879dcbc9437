// Package monitor serves the local HTTP surface of a posture session:
// the feedback page, JSON status, the latest overlay frame and debug
// charts.
package monitor
