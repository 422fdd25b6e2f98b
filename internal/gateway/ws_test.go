package gateway

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hyeon-dev/chessduel/pkg/dueldto"
)

func (s *testServer) wsURL(path string) string {
	return strings.Replace(s.ts.URL, "http://", "ws://", 1) + path
}

func TestServer_EventStream(t *testing.T) {
	s := newTestServer(t)
	_, raw := s.do(t, http.MethodPost, "/api/duels", nil)
	id := decodeView(t, raw).ID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL("/api/duels/"+id+"/events"), nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var first dueldto.EventFrame
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if first.Type != "state" || first.Session == nil || first.Session.ID != id {
		t.Fatalf("initial frame = %+v", first)
	}
	if first.Session.MoveCount != 0 {
		t.Fatalf("initial move count = %d", first.Session.MoveCount)
	}

	if resp, raw := s.do(t, http.MethodPost, "/api/duels/"+id+"/moves", dueldto.PlayMoveRequest{From: "e2", To: "e4"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("move = %d: %s", resp.StatusCode, raw)
	}

	sawThinking := false
	for {
		var frame dueldto.EventFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Session == nil || frame.Session.ID != id {
			t.Fatalf("frame for wrong session: %+v", frame)
		}
		if frame.Type == "thinking" && frame.Session.Thinking {
			sawThinking = true
		}
		if frame.Type == "state" && frame.Session.MoveCount >= 2 {
			if frame.Session.Turn != "white" {
				t.Fatalf("reply frame = %+v", frame.Session)
			}
			break
		}
	}
	if !sawThinking {
		t.Fatal("no thinking frame observed before the reply")
	}
}

func TestServer_EventStreamUnknownSession(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, _, err := websocket.Dial(ctx, s.wsURL("/api/duels/absent/events"), nil); err == nil {
		t.Fatal("dial for unknown session succeeded")
	}
}
