// Package bitmap provides immutable roaring bitmaps of rule indices.
//
// Compiled tables share their bitmaps between goroutines, so every set
// operation returns a new Bitmap. A Builder accumulates ids before they are
// frozen. Aggregate reduces many bitmaps in parallel by splitting the id
// space on container boundaries.
package bitmap
