// Package badge keeps a visible progress indicator consistent across cycles.
//
// States progress idle → busy → intermediate(n) → complete(n) → clear → idle.
// Transitions are queued on a channel drained by one goroutine and each is
// applied only after the previous Indicator.Show returned. A complete badge
// clears itself after a wait unless a newer transition gets there first.
package badge
