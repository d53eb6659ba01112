// Package sim drives control programs against a track.
//
// A [Simulator] owns one control program ([hardware.Robot]), its pose and a
// private track bitmap. Each [Simulator.Step] advances the clock, moves the
// robot with the kinematic model, samples the line sensors and calls the
// program's Loop.
//
// A [Batch] runs many randomized simulators in parallel to test how robust
// a control program is against small deviations in start pose, timing,
// sensor readings and motor output. A fault during Prepare aborts the
// batch; a fault during Run stops the siblings and is reported with the
// trajectories. A Batch runs once.
//
// # Example
//
//	m, _ := track.Load(ctx, "track.png", 500)
//	factory, _ := robots.NewRegistry().Factory("linefollower")
//	b := sim.NewBatch(factory, setup, m, sim.DefaultBatchConfig())
//	if err := b.Prepare(ctx); err != nil { ... }
//	if err := b.Run(ctx); err != nil { ... }
//	trajectories := b.Trajectories()
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. A Batch gives every simulator its
// own clone of the cached track bitmap and its own random source, so workers
// share no mutable memory.
package sim
