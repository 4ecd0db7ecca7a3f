// Package broadcast implements the bin hub using the actor pattern.
//
// A single goroutine owns the connection set and is the only caller that mutates the store
// on behalf of observers, so decode, store call and fan-out of one message never interleave
// with another message or with a joining observer's snapshot. Uses single goroutine +
// command channel (no mutexes). Per-connection write goroutines with bounded queues keep a
// stalled peer from delaying everyone else.
package broadcast
