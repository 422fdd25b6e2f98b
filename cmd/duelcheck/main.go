// duelcheck probes a running duel server: liveness, archive stats, and
// optionally the WebSocket event stream of one session.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hyeon-dev/chessduel/pkg/dueldto"
)

const (
	probeTimeout  = 5 * time.Second
	observeWindow = 10 * time.Second
)

func main() {
	baseURL := strings.TrimSpace(os.Getenv("DUEL_SERVER_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := &fasthttp.Client{MaxConnsPerHost: 4}

	ok := true
	if body, err := probe(client, baseURL+"/healthz"); err != nil {
		log.Printf("/healthz error: %v", err)
		ok = false
	} else {
		log.Printf("/healthz ok: %s", truncate(body, 256))
	}

	if body, err := probe(client, baseURL+"/api/archive/stats"); err != nil {
		log.Printf("/api/archive/stats error: %v", err)
		ok = false
	} else {
		log.Printf("/api/archive/stats ok: %s", truncate(body, 512))
	}

	if session := strings.TrimSpace(os.Getenv("DUEL_OBSERVE_SESSION")); session != "" {
		if err := observeEvents(baseURL, session); err != nil {
			log.Printf("event stream error: %v", err)
			ok = false
		}
	}

	if !ok {
		os.Exit(1)
	}
}

func probe(client *fasthttp.Client, url string) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := client.DoDeadline(req, resp, time.Now().Add(probeTimeout)); err != nil {
		return "", err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode(), truncate(string(resp.Body()), 256))
	}
	return string(resp.Body()), nil
}

// observeEvents dials the session's WebSocket stream and prints frames for a
// short window.
func observeEvents(baseURL, session string) error {
	wsURL := toWebSocketURL(baseURL) + "/api/duels/" + session + "/events"

	dialCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx, cancelObserve := context.WithTimeout(context.Background(), observeWindow)
	defer cancelObserve()

	log.Printf("observing %s for %s", wsURL, observeWindow)
	for {
		var frame dueldto.EventFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if frame.Session != nil {
			fmt.Printf("event type=%s phase=%s turn=%s moves=%d thinking=%v\n",
				frame.Type, frame.Session.Phase, frame.Session.Turn,
				frame.Session.MoveCount, frame.Session.Thinking)
		} else {
			fmt.Printf("event type=%s\n", frame.Type)
		}
	}
}

func toWebSocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return "ws://" + baseURL
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
