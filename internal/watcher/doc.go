// Package watcher provides a recursive fsnotify-backed watch over one root.
//
// Callbacks run on the watcher's forwarder goroutine, never on the caller's.
// A callback must return quickly: while it runs, no further notifications are
// drained from the OS. Delivery is best-effort; callers should expect events
// to be missed when directories appear faster than watches can be added.
package watcher
