// Package boardimage rasterizes chess positions into PNG images for the
// HTTP board endpoint. Piece glyphs are generated SVG paths, rasterized once
// per size and cached.
package boardimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MoveHighlight marks the from/to squares of the most recent move.
type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	Highlight *MoveHighlight
	Header    string
}

type Renderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

type svgRenderer struct{}

func NewRenderer() Renderer {
	return &svgRenderer{}
}

const (
	squareSize   = 72
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	sideMargin   = 36
	topMargin    = 56
	bottomMargin = 36
)

var (
	backgroundColor     = color.RGBA{24, 26, 38, 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	humanHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	aiMoveArrowColor    = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralArrowColor   = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	headerTextColor     = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor = color.NRGBA{R: 220, G: 224, B: 240, A: 255}
)

func (r *svgRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHeader(img, opts.Header, totalWidth)
	drawSquares(img, origin)
	if err := drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	drawHighlight(img, board, opts.Highlight, origin)
	drawCoordinates(img, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	boardRanks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	boardFiles = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, origin image.Point) error {
	boardMap := board.SquareMap()
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			sq := nchess.NewSquare(file, rank)
			piece := boardMap[sq]
			if piece == nchess.NoPiece {
				continue
			}
			glyph, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), glyph, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// drawHighlight marks the last move. Human moves get translucent square
// fills, automated moves get an arrow so the viewer can spot the reply at a
// glance.
func drawHighlight(img *image.RGBA, board *nchess.Board, highlight *MoveHighlight, origin image.Point) {
	if highlight == nil {
		return
	}
	switch moverColor, ok := highlightMoverColor(board, highlight); {
	case ok && moverColor == nchess.Black:
		drawArrow(img, highlight.From, highlight.To, origin, aiMoveArrowColor)
	case ok && moverColor == nchess.White:
		drawSquareOverlay(img, highlight.From, origin, humanHighlightFill)
		drawSquareOverlay(img, highlight.To, origin, humanHighlightFill)
	default:
		drawArrow(img, highlight.From, highlight.To, origin, neutralArrowColor)
	}
}

func highlightMoverColor(board *nchess.Board, highlight *MoveHighlight) (nchess.Color, bool) {
	if board == nil || highlight == nil {
		return nchess.NoColor, false
	}
	if piece := board.Piece(highlight.To); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	if piece := board.Piece(highlight.From); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	return nchess.NoColor, false
}

func drawSquareOverlay(img *image.RGBA, sq nchess.Square, origin image.Point, clr color.Color) {
	if img == nil {
		return
	}
	imagedraw.Draw(img, squareRect(sq, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to nchess.Square, origin image.Point, clr color.Color) {
	if img == nil || from == to {
		return
	}
	startRect := squareRect(from, origin)
	endRect := squareRect(to, origin)
	start := image.Point{
		X: startRect.Min.X + squareSize/2,
		Y: startRect.Min.Y + squareSize/2,
	}
	end := image.Point{
		X: endRect.Min.X + squareSize/2,
		Y: endRect.Min.Y + squareSize/2,
	}

	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	dirX := dx / length
	dirY := dy / length
	perpX := -dirY
	perpY := dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.18
	headWidth := float64(squareSize) * 0.32

	baseX := float64(start.X) + dirX*baseLength
	baseY := float64(start.Y) + dirY*baseLength

	fillQuad(img,
		pointF{X: float64(start.X) - perpX*halfWidth, Y: float64(start.Y) - perpY*halfWidth},
		pointF{X: float64(start.X) + perpX*halfWidth, Y: float64(start.Y) + perpY*halfWidth},
		pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth},
		pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth},
		clr,
	)

	fillTriangleF(img,
		pointF{X: float64(end.X), Y: float64(end.Y)},
		pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2},
		pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2},
		clr,
	)
}

func drawHeader(img *image.RGBA, header string, totalWidth int) {
	header = strings.TrimSpace(header)
	if header == "" {
		return
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Face: face,
		Src:  image.NewUniform(headerTextColor),
	}
	width := drawer.MeasureString(header).Round()
	x := (totalWidth - width) / 2
	if x < sideMargin {
		x = sideMargin
	}
	baseline := topMargin/2 + face.Metrics().Ascent.Ceil()/2
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(header)
}

func drawCoordinates(dst imagedraw.Image, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  dst,
		Face: face,
		Src:  image.NewUniform(coordinateTextColor),
	}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + len(boardRanks)*squareSize

	for row, rank := range boardRanks {
		rankBaseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-sideMargin/2, rankBaseline)
	}
	for col, file := range boardFiles {
		fileCenter := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), fileCenter, boardEndY+ascent+6)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

type glyphCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	glyphCache   = map[glyphCacheKey]image.Image{}
	glyphCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := glyphCacheKey{piece: piece, size: size}

	glyphCacheMu.RLock()
	if img, ok := glyphCache[key]; ok {
		glyphCacheMu.RUnlock()
		return img, nil
	}
	glyphCacheMu.RUnlock()

	doc, err := pieceDocument(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = img
	glyphCacheMu.Unlock()

	return img, nil
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if img == nil {
		return
	}
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}

	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	srcR := float64(sr) / 65535.0
	srcG := float64(sg) / 65535.0
	srcB := float64(sb) / 65535.0

	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0

	var dstR, dstG, dstB float64
	if dstA > 0 {
		inv := 1.0 / dstA
		dstR = float64(dst.R) / 255.0 * inv
		dstG = float64(dst.G) / 255.0 * inv
		dstB = float64(dst.B) / 255.0 * inv
	}

	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		img.SetRGBA(x, y, color.RGBA{})
		return
	}

	outR := (srcR*srcA + dstR*dstA*(1-srcA)) / outA
	outG := (srcG*srcA + dstG*dstA*(1-srcA)) / outA
	outB := (srcB*srcA + dstB*dstA*(1-srcA)) / outA

	img.SetRGBA(x, y, color.RGBA{
		R: clampUint8(outR * outA * 255.0),
		G: clampUint8(outG * outA * 255.0),
		B: clampUint8(outB * outA * 255.0),
		A: clampUint8(outA * 255.0),
	})
}

func clampUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
