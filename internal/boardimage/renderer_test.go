package boardimage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestRenderPNG_StartingPosition(t *testing.T) {
	r := NewRenderer()
	board := nchess.NewGame().Position().Board()

	raw, err := r.RenderPNG(context.Background(), board, RenderOptions{Header: "white to move"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	wantW := boardSize + sideMargin*2
	wantH := boardSize + topMargin + bottomMargin
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
		t.Fatalf("image bounds = %v, want %dx%d", img.Bounds(), wantW, wantH)
	}
}

func TestRenderPNG_NilBoard(t *testing.T) {
	r := NewRenderer()
	if _, err := r.RenderPNG(context.Background(), nil, RenderOptions{}); err == nil {
		t.Fatal("render of nil board succeeded")
	}
}

func TestRenderPNG_CanceledContext(t *testing.T) {
	r := NewRenderer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	board := nchess.NewGame().Position().Board()
	if _, err := r.RenderPNG(ctx, board, RenderOptions{}); err == nil {
		t.Fatal("render with canceled context succeeded")
	}
}

func TestRenderPNG_HighlightChangesOutput(t *testing.T) {
	r := NewRenderer()
	game := nchess.NewGame()
	mv, err := nchess.UCINotation{}.Decode(game.Position(), "e2e4")
	if err != nil {
		t.Fatalf("decode e2e4: %v", err)
	}
	if err := game.Move(mv, nil); err != nil {
		t.Fatalf("apply e2e4: %v", err)
	}
	board := game.Position().Board()

	plain, err := r.RenderPNG(context.Background(), board, RenderOptions{})
	if err != nil {
		t.Fatalf("render plain: %v", err)
	}
	from := nchess.NewSquare(nchess.FileE, nchess.Rank2)
	to := nchess.NewSquare(nchess.FileE, nchess.Rank4)
	marked, err := r.RenderPNG(context.Background(), board, RenderOptions{
		Highlight: &MoveHighlight{From: from, To: to},
	})
	if err != nil {
		t.Fatalf("render highlighted: %v", err)
	}
	if bytes.Equal(plain, marked) {
		t.Fatal("highlight produced identical output")
	}
}

func TestRenderPNG_HeaderChangesOutput(t *testing.T) {
	r := NewRenderer()
	board := nchess.NewGame().Position().Board()

	a, err := r.RenderPNG(context.Background(), board, RenderOptions{Header: "white to move"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := r.RenderPNG(context.Background(), board, RenderOptions{Header: "checkmate: black wins"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("different headers produced identical output")
	}
}

func TestRenderPieceImage_AllGlyphs(t *testing.T) {
	board := nchess.NewGame().Position().Board()
	seen := map[nchess.Piece]bool{}
	for _, piece := range board.SquareMap() {
		if seen[piece] {
			continue
		}
		seen[piece] = true
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			t.Fatalf("render glyph for %v: %v", piece, err)
		}
		if img.Bounds().Dx() != squareSize || img.Bounds().Dy() != squareSize {
			t.Fatalf("glyph bounds for %v = %v", piece, img.Bounds())
		}
	}
	// Both armies on the initial board cover every piece kind.
	if len(seen) != 12 {
		t.Fatalf("distinct pieces rendered = %d, want 12", len(seen))
	}
}

func TestSquareRect_Orientation(t *testing.T) {
	origin := image.Point{X: sideMargin, Y: topMargin}

	a1 := squareRect(nchess.NewSquare(nchess.FileA, nchess.Rank1), origin)
	if a1.Min.X != sideMargin || a1.Min.Y != topMargin+7*squareSize {
		t.Fatalf("a1 rect = %v", a1)
	}
	h8 := squareRect(nchess.NewSquare(nchess.FileH, nchess.Rank8), origin)
	if h8.Min.X != sideMargin+7*squareSize || h8.Min.Y != topMargin {
		t.Fatalf("h8 rect = %v", h8)
	}
}

func TestSquareColor_Checkering(t *testing.T) {
	a1 := nchess.NewSquare(nchess.FileA, nchess.Rank1)
	b1 := nchess.NewSquare(nchess.FileB, nchess.Rank1)
	if squareColor(a1) == squareColor(b1) {
		t.Fatal("adjacent squares share a color")
	}
	h1 := nchess.NewSquare(nchess.FileH, nchess.Rank1)
	if squareColor(a1) == squareColor(h1) {
		t.Fatal("a1 and h1 share a color")
	}
}
