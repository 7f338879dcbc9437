// Package pipeline is the composition root of the posture pipeline.
//
// A Session owns everything one capture session needs: the latest
// detection slot (L2), the gate and analyzer (L3), the feedback sink (L4)
// and the overlay renderer (L5). Detection callbacks only write the slot;
// the render loop reads it once per tick and drives gate, analyzer, sink
// and renderer. Nothing is carried between ticks except the slot and
// whatever the sink chooses to keep.
//
// None of the layer packages import pipeline/.
package pipeline
