package game

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/iburimskiy/cymatic/internal/visualizer"
)

// maxQuads keeps every DrawTriangles call under the uint16 index limit.
const maxQuads = (1<<16 - 1) / 4

// minPointSize keeps far particles visible.
const minPointSize = 1

// batch collects one square per particle and draws them in chunks.
type batch struct {
	vertices []ebiten.Vertex
	indices  []uint16
	op       ebiten.DrawTrianglesOptions
	white    *ebiten.Image
}

func (b *batch) reset() {
	b.vertices = b.vertices[:0]
}

func (b *batch) add(p visualizer.ScreenPoint) {
	half := p.Size / 2
	if half < minPointSize/2.0 {
		half = minPointSize / 2.0
	}
	r, g, bl := clamp01(p.R), clamp01(p.G), clamp01(p.B)
	for _, c := range [4][2]float32{{-half, -half}, {half, -half}, {-half, half}, {half, half}} {
		b.vertices = append(b.vertices, ebiten.Vertex{
			DstX:   p.X + c[0],
			DstY:   p.Y + c[1],
			SrcX:   1,
			SrcY:   1,
			ColorR: r,
			ColorG: g,
			ColorB: bl,
			ColorA: 1,
		})
	}
}

func (b *batch) quads() int { return len(b.vertices) / 4 }

// indicesFor returns the index list for n quads, growing the shared buffer.
func (b *batch) indicesFor(n int) []uint16 {
	for q := len(b.indices) / 6; q < n; q++ {
		base := uint16(q * 4)
		b.indices = append(b.indices, base, base+1, base+2, base+1, base+3, base+2)
	}
	return b.indices[:n*6]
}

func (b *batch) draw(dst *ebiten.Image) {
	if b.white == nil {
		img := ebiten.NewImage(3, 3)
		img.Fill(color.White)
		b.white = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	b.op.Blend = ebiten.BlendLighter
	for start := 0; start < b.quads(); start += maxQuads {
		n := min(maxQuads, b.quads()-start)
		dst.DrawTriangles(b.vertices[start*4:(start+n)*4], b.indicesFor(n), b.white, &b.op)
	}
}
