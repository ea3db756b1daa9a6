// Package dispatch delivers planned payloads to the open and copy surfaces.
//
// Open requests are fire-and-forget: the Dispatcher issues them in order on a
// background goroutine. The copy hand-off is declarative: the Dispatcher
// activates the copy surface and passes it the whole ordered list with the
// pacing interval and cap, and the surface does the paced writing.
//
// Two local surfaces are included for hosts that run on the user's desktop:
// BrowserOpener (pkg/browser) and ClipboardSurface (atotto/clipboard paced by
// an x/time/rate limiter).
package dispatch
