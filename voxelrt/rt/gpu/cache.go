package gpu

import (
	"github.com/gekko3d/voxcanvas/voxelrt/rt/volume"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"
)

type layerKey struct {
	axis  volume.Axis
	index int
}

// ResourceCache holds the grid-derived draw resources and rebuilds each one
// lazily when the grid version (or, for the layer, the visible slice) differs
// from what it was built from.
type ResourceCache struct {
	log Logger

	grid *volume.VoxelGrid

	layer        *volume.LayerBuffers
	layerExtent  volume.Extent
	layerVersion uint64
	layerKey     layerKey

	mesh        *volume.MeshBuffers
	meshExtent  volume.Extent
	meshVersion uint64

	textures   *volume.VolumeTextures
	texVersion uint64

	Rebuilds CacheStats
}

// CacheStats counts rebuilds per resource.
type CacheStats struct {
	Layer    int
	Mesh     int
	Textures int
}

func NewResourceCache(log Logger) *ResourceCache {
	if log == nil {
		log = nopLogger{}
	}
	return &ResourceCache{log: log}
}

// bind switches the cache to grid, dropping everything built from another grid.
func (c *ResourceCache) bind(grid *volume.VoxelGrid) {
	if c.grid == grid {
		return
	}
	c.grid = grid
	c.layer, c.mesh, c.textures = nil, nil, nil
}

// Layer returns the editor slice buffers for (axis, index) and the occupied Y extent.
func (c *ResourceCache) Layer(grid *volume.VoxelGrid, axis volume.Axis, index int) (*volume.LayerBuffers, volume.Extent) {
	c.bind(grid)
	key := layerKey{axis, index}
	if c.layer == nil || c.layerVersion != grid.Version() || c.layerKey != key {
		c.layer, c.layerExtent = grid.RebuildLayerBuffers(axis, index)
		c.layerVersion = grid.Version()
		c.layerKey = key
		c.Rebuilds.Layer++
		c.log.Debugf("rebuilt layer %s=%d: %d voxels", axis, index, c.layer.Len())
	}
	return c.layer, c.layerExtent
}

// Mesh returns the full-volume preview geometry.
func (c *ResourceCache) Mesh(grid *volume.VoxelGrid) (*volume.MeshBuffers, volume.Extent) {
	c.bind(grid)
	if c.mesh == nil || c.meshVersion != grid.Version() {
		c.mesh, c.meshExtent = grid.RebuildVolumeBuffers()
		c.meshVersion = grid.Version()
		c.Rebuilds.Mesh++
		c.log.Debugf("rebuilt volume mesh: %d vertices, %s", c.mesh.VertexCount(), humanize.Bytes(uint64(c.mesh.Bytes())))
	}
	return c.mesh, c.meshExtent
}

// Textures returns the lookup textures used by the tracer.
func (c *ResourceCache) Textures(grid *volume.VoxelGrid) *volume.VolumeTextures {
	c.bind(grid)
	if c.textures == nil || c.texVersion != grid.Version() {
		c.textures = grid.RebuildVolumeTextures()
		c.texVersion = grid.Version()
		c.Rebuilds.Textures++
		c.log.Debugf("rebuilt volume textures %dx%d: %s", c.textures.Width, c.textures.Height, humanize.Bytes(uint64(c.textures.Bytes())))
	}
	return c.textures
}

// Footprint estimates the heap held by the cached resources.
func (c *ResourceCache) Footprint() int {
	n := 0
	if c.layer != nil {
		n += size.Of(c.layer)
	}
	if c.mesh != nil {
		n += size.Of(c.mesh)
	}
	if c.textures != nil {
		n += size.Of(c.textures)
	}
	return n
}
