// Package postprocess lays derived cube maps out as LDR preview images.
package postprocess

import (
	"image"
	"image/draw"

	"ibl-prefilter/internal/cubemap"
	"ibl-prefilter/internal/raster"
)

// crossCells places each face in a 4×3 horizontal cross:
//
//	    +Y
//	-X  +Z  +X  -Z
//	    -Y
var crossCells = [cubemap.FaceCount]image.Point{
	cubemap.PosX: {2, 1},
	cubemap.NegX: {0, 1},
	cubemap.PosY: {1, 0},
	cubemap.NegY: {1, 2},
	cubemap.PosZ: {1, 1},
	cubemap.NegZ: {3, 1},
}

// Cross unfolds c into a 4s×3s image. Cells without a face are transparent.
func Cross(c *cubemap.Cube) *raster.HDRImage {
	s := c.Size
	out := raster.NewHDRImage(4*s, 3*s)
	for f, img := range c.Faces {
		cell := crossCells[f]
		for y := 0; y < s; y++ {
			src := img.Pix[img.Offset(0, y):img.Offset(0, y+1)]
			copy(out.Pix[out.Offset(cell.X*s, cell.Y*s+y):], src)
		}
	}
	return out
}

// Sheet stacks tone-mapped crosses of cubes into one preview of the given
// width. Each row is 3/4 of the width tall regardless of the cube size.
func Sheet(cubes []*cubemap.Cube, width int, tm raster.ToneMap) *image.NRGBA {
	if width < 4 {
		width = 4
	}
	width -= width % 4
	rowH := width * 3 / 4

	sheet := image.NewNRGBA(image.Rect(0, 0, width, rowH*len(cubes)))
	for i, c := range cubes {
		row := Resize(tm.ToNRGBA(Cross(c)), width, rowH)
		r := image.Rect(0, i*rowH, width, (i+1)*rowH)
		draw.Draw(sheet, r, row, image.Point{}, draw.Src)
	}
	return sheet
}
