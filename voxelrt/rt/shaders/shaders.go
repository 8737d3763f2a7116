package shaders

import (
	_ "embed"
)

//go:embed fullscreen.wgsl
var FullscreenWGSL string

//go:embed raster.wgsl
var RasterWGSL string

//go:embed trace.wgsl
var TraceWGSL string
