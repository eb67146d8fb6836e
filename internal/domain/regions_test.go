package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionNamesMap_FixedLiteral(t *testing.T) {
	want := map[int]string{
		0: "Kangerdlugssuaq",
		1: "Storstrommen",
		2: "Zachariae",
		3: "Qannaq",
		4: "Kakivfaat",
		5: "Upernavik",
		6: "Ummannaq",
		7: "Torsukataq",
	}
	assert.Equal(t, want, RegionNamesMap())
	assert.Equal(t, RegionNamesMap(), RegionNamesMap())
}

func TestRegionNamesMap_ReturnsFreshMap(t *testing.T) {
	m := RegionNamesMap()
	m[0] = "changed"
	delete(m, 7)

	assert.Equal(t, "Kangerdlugssuaq", RegionNamesMap()[0])
	assert.Len(t, RegionNamesMap(), 8)
}

func TestRegionPosition_FixedLiteral(t *testing.T) {
	pos := RegionPosition()
	assert.Len(t, pos, 8)
	assert.Equal(t, PanelPosition{Index: 3, Letter: "a"}, pos[1])
	assert.Equal(t, PanelPosition{Index: 0, Letter: "h"}, pos[6])
	assert.Equal(t, PanelPosition{Index: 7, Letter: "j"}, pos[8])
	assert.Equal(t, pos, RegionPosition())

	// Every panel index is used exactly once.
	seen := make(map[int]bool)
	for _, p := range pos {
		assert.False(t, seen[p.Index], "duplicate panel index %d", p.Index)
		seen[p.Index] = true
	}
}

func TestGLExtents4326(t *testing.T) {
	assert.Equal(t, []float64{-59, -29, 58, 85}, GLExtents4326())

	e := GLExtents4326()
	e[0] = 0
	assert.Equal(t, []float64{-59, -29, 58, 85}, GLExtents4326())

	assert.Equal(t, Extent{MinLon: -59, MaxLon: -29, MinLat: 58, MaxLat: 85}, GreenlandExtent())
}
