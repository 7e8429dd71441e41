// Package grid turns an ordered sequence of detector frames into speckles.
//
// Every frame is divided into a grid of square blocks of blockSize pixels.
// The mean pixel value of each block becomes one sample of that block's
// intensity trace; after the last frame every retained block yields one
// [speckle.Speckle]. Blocks along the detector edges can be excluded with
// [WithSkipRows] and [WithSkipColumns].
//
// The grid is walked block row by block row, left to right, so cell i of a
// frame vector always refers to the same detector region.
package grid
