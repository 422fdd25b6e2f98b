package provider

import (
	"strings"
	"testing"
)

func TestParseMoveProposal_PlainJSON(t *testing.T) {
	p, err := parseMoveProposal(`{"from":"e7","to":"e5"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.From != "e7" || p.To != "e5" || p.Promotion != "" {
		t.Fatalf("proposal = %+v", p)
	}
}

func TestParseMoveProposal_FencedAndUppercase(t *testing.T) {
	reply := "```json\n{\"from\":\"E7\",\"to\":\"E5\",\"promotion\":\"QUEEN\"}\n```"
	p, err := parseMoveProposal(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.From != "e7" || p.To != "e5" || p.Promotion != "q" {
		t.Fatalf("proposal = %+v", p)
	}
}

func TestParseMoveProposal_WrappedInProse(t *testing.T) {
	reply := `Considering the position, the strongest continuation is {"from":"b8","to":"c6"} which develops a piece.`
	p, err := parseMoveProposal(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.From != "b8" || p.To != "c6" {
		t.Fatalf("proposal = %+v", p)
	}
}

func TestParseMoveProposal_BracesInsideStrings(t *testing.T) {
	reply := `{"from":"g8","to":"f6","promotion":"none"}`
	p, err := parseMoveProposal(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Promotion != "" {
		t.Fatalf("promotion = %q, want empty", p.Promotion)
	}
}

func TestParseMoveProposal_Failures(t *testing.T) {
	for _, reply := range []string{
		"e7e5",
		`{"from":"e7"}`,
		`{"from":"e7","to":`,
		"",
	} {
		if _, err := parseMoveProposal(reply); err == nil {
			t.Fatalf("parse of %q succeeded", reply)
		}
	}
}

func TestParseMoveToken(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"Nf3", "Nf3"},
		{"  exd5\n", "exd5"},
		{`"O-O"`, "O-O"},
		{"Qxf7#.", "Qxf7#"},
		{"Nf3 looks strongest here", "Nf3"},
		{"```\nNf3\n```", "Nf3"},
	}
	for _, tc := range tests {
		got, err := parseMoveToken(tc.reply)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.reply, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q = %q, want %q", tc.reply, got, tc.want)
		}
	}
}

func TestParseMoveToken_Failures(t *testing.T) {
	for _, reply := range []string{"", "   ", strings.Repeat("x", 12)} {
		if _, err := parseMoveToken(reply); err == nil {
			t.Fatalf("parse of %q succeeded", reply)
		}
	}
}

func TestNormalizePromotion(t *testing.T) {
	tests := map[string]string{
		"":       "",
		"none":   "",
		"NULL":   "",
		"q":      "q",
		"Queen":  "q",
		"ROOK":   "r",
		"bishop": "b",
		"n":      "n",
		"Knight": "n",
	}
	for in, want := range tests {
		if got := normalizePromotion(in); got != want {
			t.Fatalf("normalizePromotion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractJSONObject_HonorsStringEscapes(t *testing.T) {
	raw, err := extractJSONObject(`noise {"note":"a \"brace\" } inside","from":"e7","to":"e5"} trailing`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.HasPrefix(raw, `{"note"`) || !strings.HasSuffix(raw, `"e5"}`) {
		t.Fatalf("extracted %q", raw)
	}
}
