// Package events provides progress event bus implementations.
//
// Implementations:
//   - memory: in-process fan-out with bounded, non-blocking delivery
//   - redis: Redis Streams mirror for out-of-process followers
//
// Mirror combines them: subscribers read from the primary bus while every
// update is also copied to the mirrors.
package events
