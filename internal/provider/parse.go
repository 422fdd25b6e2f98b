package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// parseMoveProposal pulls the first JSON object out of the model's reply and
// decodes the move fields. Models wrap their JSON in prose and code fences
// often enough that a plain unmarshal of the whole reply is not enough.
func parseMoveProposal(content string) (MoveProposal, error) {
	raw, err := extractJSONObject(content)
	if err != nil {
		return MoveProposal{}, fmt.Errorf("%w: %s", err, truncate(content, 128))
	}
	var p MoveProposal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return MoveProposal{}, fmt.Errorf("decode proposal: %w", err)
	}
	p.From = strings.ToLower(strings.TrimSpace(p.From))
	p.To = strings.ToLower(strings.TrimSpace(p.To))
	p.Promotion = normalizePromotion(p.Promotion)
	if p.From == "" || p.To == "" {
		return MoveProposal{}, fmt.Errorf("proposal missing from/to: %s", truncate(raw, 128))
	}
	return p, nil
}

// parseMoveToken reduces a hint reply to its first plausible move token.
func parseMoveToken(content string) (string, error) {
	s := strings.TrimSpace(content)
	s = stripFences(s)
	s = strings.Trim(s, "\"'` \t\n")
	if s == "" {
		return "", errors.New("empty hint reply")
	}
	token := strings.Trim(strings.Fields(s)[0], ".,:;!\"'`")
	if token == "" || len(token) > 7 {
		return "", fmt.Errorf("no usable move token in %s", truncate(content, 64))
	}
	return token, nil
}

// extractJSONObject returns the first balanced {...} in s, honoring strings
// and escapes, after stripping markdown fences.
func extractJSONObject(s string) (string, error) {
	s = stripFences(strings.TrimSpace(s))
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errors.New("no JSON object in reply")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errors.New("unbalanced JSON object in reply")
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func normalizePromotion(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "null":
		return ""
	case "q", "queen":
		return "q"
	case "r", "rook":
		return "r"
	case "b", "bishop":
		return "b"
	case "n", "knight":
		return "n"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
