// Package pipeline runs detection cycles.
//
// Each trigger becomes a Cycle queued on a single-worker FIFO. When its turn
// comes the cycle runs strictly in order:
//
//  1. resolve the region plan from the current region options
//  2. await the plan's raster
//  3. decode barcodes
//  4. keep only the codes under the click when the region is under-cursor
//  5. plan open and copy from the current options and dispatch
//
// The badge shows busy at the start, the decoded count after step 3 and the
// number of distinct payloads dispatched at the end.
//
// # Errors
//
// An unreachable image, an invalid trigger, a decoder failure or an invalid
// policy value abort the cycle with an error wrapping ErrAborted; nothing is
// dispatched and the badge shows complete(0). A plan with no raster, or a
// decoder that finds nothing, is a normal empty cycle. One cycle's failure
// never blocks the next.
package pipeline
