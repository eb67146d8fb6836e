// Package domain holds the fjord, region and grid types shared by the stores,
// the renderer and the HTTP layer, plus the fixed reference tables for the
// Greenland regional groupings.
package domain
