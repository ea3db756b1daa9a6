// Package region resolves a click into a detection plan.
//
// A click arrives in the frame of a reference rectangle (the element that was
// clicked, or the viewport). The Resolver decides which region is actually
// analyzed, which rectangle the eventual raster represents, and how to get
// that raster, and it decides all three together so the normalized click
// ratios always line up with the raster's pixels.
//
// Raster acquisition is deferred: the plan carries a Lazy cell that captures or
// fetches at most once, on first use by the cycle that owns it.
package region
