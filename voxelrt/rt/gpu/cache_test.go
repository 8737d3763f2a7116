package gpu

import (
	"testing"

	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceCacheRebuildsLazily(t *testing.T) {
	g := volume.NewVoxelGrid(4, 0)
	g.Set(1, 0, 1, mgl32.Vec3{1, 0, 0}, volume.MaterialDiffuse)
	c := NewResourceCache(nil)

	l, _ := c.Layer(g, volume.AxisY, 0)
	require.Equal(t, 1, l.Len())
	c.Layer(g, volume.AxisY, 0)
	assert.Equal(t, 1, c.Rebuilds.Layer, "unchanged grid must reuse the layer")

	c.Layer(g, volume.AxisY, 1)
	assert.Equal(t, 2, c.Rebuilds.Layer, "another slice needs a rebuild")

	c.Mesh(g)
	c.Mesh(g)
	c.Textures(g)
	c.Textures(g)
	assert.Equal(t, 1, c.Rebuilds.Mesh)
	assert.Equal(t, 1, c.Rebuilds.Textures)

	g.Set(2, 1, 2, mgl32.Vec3{0, 1, 0}, volume.MaterialMirror)
	l, _ = c.Layer(g, volume.AxisY, 1)
	assert.Equal(t, 1, l.Len())
	c.Mesh(g)
	tex := c.Textures(g)
	assert.Equal(t, 3, c.Rebuilds.Layer)
	assert.Equal(t, 2, c.Rebuilds.Mesh)
	assert.Equal(t, 2, c.Rebuilds.Textures)
	assert.True(t, tex.Occupied(2, 1, 2))

	assert.Positive(t, c.Footprint())
}

func TestResourceCacheDropsOnGridSwap(t *testing.T) {
	a := volume.NewVoxelGrid(4, 0)
	b := volume.NewVoxelGrid(4, 0)
	c := NewResourceCache(nil)

	c.Mesh(a)
	c.Mesh(b)
	assert.Equal(t, 2, c.Rebuilds.Mesh, "versions of different grids are not comparable")
}
