package boardimage

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

const (
	whitePieceFill   = "#f5f5f0"
	whitePieceStroke = "#2b2b2b"
	blackPieceFill   = "#2b2b2b"
	blackPieceStroke = "#e8e8e8"
)

// pieceDocument builds a standalone SVG document for one piece on the shared
// 45x45 glyph grid.
func pieceDocument(piece nchess.Piece) ([]byte, error) {
	body, ok := glyphBodies[piece.Type()]
	if !ok {
		return nil, fmt.Errorf("no glyph for piece type %v", piece.Type())
	}
	fill, stroke := whitePieceFill, whitePieceStroke
	if piece.Color() == nchess.Black {
		fill, stroke = blackPieceFill, blackPieceStroke
	}
	doc := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45">` +
		fmt.Sprintf(body, fill, stroke) +
		`</svg>`
	return []byte(doc), nil
}
