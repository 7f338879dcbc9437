// Package estimator adapts external pose estimators to the pipeline.
//
// Estimators are separate processes (a Python MoveNet worker, an edge
// device publishing over MQTT) or the built-in synthetic generator. Every
// adapter delivers complete detection batches through a callback with the
// shape of pipeline.Session.OnDetection; none of them touch analysis or
// rendering.
//
// Worker stream framing is a 4-byte big-endian length prefix followed by
// one msgpack Message. The first message of a stream must be the skeleton
// handshake.
package estimator
