package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog("")
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("encode reply: %v", err)
	}
}

func TestClient_ProposeMove(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		chatReply(t, w, `{"from":"e7","to":"e5"}`)
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "secret-key", "test-model", newTestCatalog(t), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	proposal, err := client.ProposeMove(context.Background(), MoveRequest{
		FEN:        "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		SideToMove: "black",
		LegalMoves: []string{"e7e5", "g8f6"},
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if proposal.From != "e7" || proposal.To != "e5" {
		t.Fatalf("proposal = %+v", proposal)
	}

	if gotPath != "/chat/completions" {
		t.Fatalf("request path = %s", gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 {
		t.Fatalf("chat request = %+v", gotReq)
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("message roles = %s/%s", gotReq.Messages[0].Role, gotReq.Messages[1].Role)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "e7e5 g8f6") {
		t.Fatalf("user message missing legal moves: %q", gotReq.Messages[1].Content)
	}
}

func TestClient_ProposeMoveDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "", "test-model", newTestCatalog(t), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ProposeMove(context.Background(), MoveRequest{FEN: "x", SideToMove: "black"}); err == nil {
		t.Fatal("propose against a 503 succeeded")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, negotiation must not retry", got)
	}
}

func TestClient_SuggestTokenRetries(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		chatReply(t, w, "Nf3")
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "", "test-model", newTestCatalog(t), WithTimeout(2*time.Second), WithRetry(3))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	token, err := client.SuggestToken(context.Background(), HintRequest{FEN: "x", SideToMove: "white"})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if token != "Nf3" {
		t.Fatalf("token = %q, want Nf3", token)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want 2", got)
	}
}

func TestClient_SuggestTokenDoesNotRetryBadRequest(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "", "test-model", newTestCatalog(t), WithTimeout(2*time.Second), WithRetry(3))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.SuggestToken(context.Background(), HintRequest{FEN: "x", SideToMove: "white"}); err == nil {
		t.Fatal("suggest against a 400 succeeded")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, a 400 must not retry", got)
	}
}

func TestClient_APIErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":{"message":"model is decommissioned","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "", "test-model", newTestCatalog(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.ProposeMove(context.Background(), MoveRequest{FEN: "x", SideToMove: "black"})
	if err == nil || !strings.Contains(err.Error(), "model is decommissioned") {
		t.Fatalf("error = %v, want the API message surfaced", err)
	}
}

func TestClient_UnparseableProposal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "I would play the knight to f6.")
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "", "test-model", newTestCatalog(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ProposeMove(context.Background(), MoveRequest{FEN: "x", SideToMove: "black"}); err == nil {
		t.Fatal("unparseable reply succeeded")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		chatReply(t, w, `{"from":"e7","to":"e5"}`)
	}))
	defer ts.Close()
	defer close(release)

	client, err := NewClient(ts.URL, "", "test-model", newTestCatalog(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = client.ProposeMove(ctx, MoveRequest{FEN: "x", SideToMove: "black"})
	if err == nil {
		t.Fatal("propose survived a canceled context")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancellation took %v", elapsed)
	}
}

func TestNewClient_Validation(t *testing.T) {
	cat := newTestCatalog(t)
	if _, err := NewClient("", "", "model", cat); err == nil {
		t.Fatal("empty base URL accepted")
	}
	if _, err := NewClient("http://localhost", "", "", cat); err == nil {
		t.Fatal("empty model accepted")
	}
	if _, err := NewClient("http://localhost", "", "model", nil); err == nil {
		t.Fatal("nil catalog accepted")
	}
}
