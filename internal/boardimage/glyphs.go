package boardimage

import nchess "github.com/corentings/chess/v2"

// Glyph bodies are SVG fragments on a shared 45x45 grid. Each element carries
// its own style attribute so no group inheritance is needed; %[1]s is the
// fill color and %[2]s the stroke color.
var glyphBodies = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="12.5" r="5.5" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 19.5 17 L 25.5 17 L 27.5 28.5 L 17.5 28.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 12.5 37.5 L 12.5 34.5 C 12.5 31 16.5 29 22.5 29 C 28.5 29 32.5 31 32.5 34.5 L 32.5 37.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,

	nchess.Rook: `<path d="M 13 17 L 13 9.5 L 17 9.5 L 17 12.5 L 20.5 12.5 L 20.5 9.5 L 24.5 9.5 L 24.5 12.5 L 28 12.5 L 28 9.5 L 32 9.5 L 32 17 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 15 17 L 30 17 L 30 30.5 L 15 30.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 11 37.5 L 11 34 L 15 30.5 L 30 30.5 L 34 34 L 34 37.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,

	nchess.Knight: `<path d="M 24 37.5 L 11.5 37.5 C 11.5 32.5 14 30.5 16 28.5 C 18.5 26 19.5 23 19 21 C 16.5 23 13.5 23.5 12 22.5 C 10.5 21.5 11.5 19.5 12.5 17.5 C 14.5 14 17.5 11 21 9.5 L 20.5 6.5 L 23.5 9 C 30 10 34.5 16 35 23.5 C 35.5 28.5 33.5 33.5 31 37.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<circle cx="17" cy="16.5" r="1.2" style="fill:%[2]s;stroke:none"/>`,

	nchess.Bishop: `<circle cx="22.5" cy="7.5" r="2.2" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 22.5 9.5 C 27 12.5 29.5 16.5 29.5 21 C 29.5 25.5 26.5 28.5 22.5 28.5 C 18.5 28.5 15.5 25.5 15.5 21 C 15.5 16.5 18 12.5 22.5 9.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 22.5 14 L 22.5 21.5 M 19 17.5 L 26 17.5" style="fill:none;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 13.5 37.5 L 13.5 35 C 13.5 32 17 30.5 22.5 30.5 C 28 30.5 31.5 32 31.5 35 L 31.5 37.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,

	nchess.Queen: `<path d="M 11.5 30 L 9 12.5 L 12.4 23 L 15.75 11 L 19.1 23 L 22.5 9.5 L 25.9 23 L 29.25 11 L 32.6 23 L 36 12.5 L 33.5 30 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<circle cx="9" cy="12" r="1.7" style="fill:%[1]s;stroke:%[2]s;stroke-width:1"/>` +
		`<circle cx="15.75" cy="10.5" r="1.7" style="fill:%[1]s;stroke:%[2]s;stroke-width:1"/>` +
		`<circle cx="22.5" cy="9" r="1.7" style="fill:%[1]s;stroke:%[2]s;stroke-width:1"/>` +
		`<circle cx="29.25" cy="10.5" r="1.7" style="fill:%[1]s;stroke:%[2]s;stroke-width:1"/>` +
		`<circle cx="36" cy="12" r="1.7" style="fill:%[1]s;stroke:%[2]s;stroke-width:1"/>` +
		`<path d="M 12.5 37.5 L 12.5 35 C 12.5 32.5 16.5 31.5 22.5 31.5 C 28.5 31.5 32.5 32.5 32.5 35 L 32.5 37.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,

	nchess.King: `<path d="M 21.5 6 L 23.5 6 L 23.5 8.5 L 26 8.5 L 26 10.5 L 23.5 10.5 L 23.5 13 L 21.5 13 L 21.5 10.5 L 19 10.5 L 19 8.5 L 21.5 8.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1"/>` +
		`<path d="M 20.5 13 L 24.5 13 L 24 19 L 21 19 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 22.5 25.5 C 22.5 21 26 16 30.5 16 C 34.5 16 36.5 19 36.5 22 C 36.5 26.5 31 30 22.5 31.5 C 14 30 8.5 26.5 8.5 22 C 8.5 19 10.5 16 14.5 16 C 19 16 22.5 21 22.5 25.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>` +
		`<path d="M 12.5 37.5 L 12.5 34.5 C 12.5 32.5 16.5 31.5 22.5 31.5 C 28.5 31.5 32.5 32.5 32.5 34.5 L 32.5 37.5 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,
}
