// Package workqueue provides the bounded FIFO scheduler shared by the
// acquisition and analysis pipelines.
//
// A Queue deduplicates submissions by key across its pending list and its
// in-flight set, runs at most its worker budget of handlers at once, and
// dispatches the next item as soon as a slot frees. Reset advances a
// generation counter: work captured under an older generation observes a
// cancelled context and Job.Guard refuses to run its state changes.
package workqueue
