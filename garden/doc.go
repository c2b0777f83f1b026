// Package garden simulates a note garden: drifting nodes that each carry a
// musical note, a proximity pass that turns closeness into a size, and a
// sweep marker that plays every node it crosses.
//
// A Session holds all mutable state behind one lock. Frame runs motion and
// proximity, Sweep advances the marker and fires triggers. Both are plain
// synchronous calls; Clock drives them from simulated time and Loop from
// wall-clock tickers.
package garden
