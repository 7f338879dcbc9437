// Package l4feedback owns Layer 4 (Feedback) of the posture data model.
//
// Responsibilities: the FeedbackSink contract and the named regions it
// writes. Each publish replaces a region's content wholesale; nothing is
// appended, merged or averaged.
// Key types: Sink, Board, Entry, View, MultiSink, MQTTSink.
//
// When several poses are analysed in one tick they all write the same six
// regions, so the last pose in batch order wins.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4feedback
