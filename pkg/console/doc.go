// Package console implements the embedded remote command console core:
// a TCP listener that accepts line-oriented text commands from remote
// tooling, paces and queues them across goroutines, and a dispatcher that
// drains the queue on the host's own tick, routing each command to a
// registered handler or to dynamically bound methods.
//
// Data flows one direction under concurrency (reader goroutines -> queue ->
// single-consumer dispatcher) and one direction under control (dispatcher
// queries the manager and emits events outward on a single tagged channel).
package console
