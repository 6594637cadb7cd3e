// Package match ranks rental listings against one sale listing.
//
// The Engine scores every candidate with three independent components
// (text, image and structured similarity), blends them with validated
// weights into a 0..100 score and returns the top K. Candidates are scored
// on a bounded worker pool shared by all requests of one Engine.
//
// A rental that cannot be scored is skipped and counted, never fatal. A
// request that runs out of time returns what it ranked so far with
// Result.Partial set; a request cancelled by its caller returns the context
// error.
package match
