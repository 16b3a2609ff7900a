package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ericogr/skirmish/internal/battle"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/storage"
)

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func startBattle(t *testing.T, s *testServer) StartResponse {
	t.Helper()
	w := doJSON(t, s.router, http.MethodPost, "/api/battles", "", startBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp StartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode start: %v", err)
	}
	return resp
}

func TestStartBattle_IssuesTokensForHumans(t *testing.T) {
	s := newTestServer(t)
	resp := startBattle(t, s)
	if resp.BattleID == "" || resp.Snapshot.Turn != 1 {
		t.Fatalf("unexpected start response %+v", resp)
	}
	if len(resp.Tokens) != 1 || resp.Tokens[game.SideA] == "" {
		t.Fatalf("expected a single token for side a, got %v", resp.Tokens)
	}
	claims, err := s.tokens.Parse(resp.Tokens[game.SideA])
	if err != nil {
		t.Fatalf("token does not parse: %v", err)
	}
	if claims.BattleID != resp.BattleID || claims.Side != game.SideA {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestStartBattle_InvalidConfig(t *testing.T) {
	s := newTestServer(t)
	body := startBody()
	body.Profile = "slow-motion"
	w := doJSON(t, s.router, http.MethodPost, "/api/battles", "", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["reason"] != string(battle.ReasonInvalidConfig) {
		t.Fatalf("expected invalid_config reason, got %v", out)
	}

	w = doJSON(t, s.router, http.MethodPost, "/api/battles", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty body: expected 400, got %d", w.Code)
	}
}

func TestSubmitAction_ResolvesTurn(t *testing.T) {
	s := newTestServer(t)
	resp := startBattle(t, s)
	path := "/api/battles/" + resp.BattleID + "/actions"

	w := doJSON(t, s.router, http.MethodPost, path, resp.Tokens[game.SideA], ActionRequest{Kind: game.ActionAttack, MoveID: "finisher"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rc battle.Receipt
	if err := json.Unmarshal(w.Body.Bytes(), &rc); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if !rc.Accepted || rc.Side != game.SideA || rc.Phase != game.PhaseEnded {
		t.Fatalf("unexpected receipt %+v", rc)
	}

	w = doJSON(t, s.router, http.MethodGet, "/api/battles/"+resp.BattleID, "", nil)
	var snap game.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Result == nil || snap.Result.Winner != game.SideA {
		t.Fatalf("expected side a to win, got %+v", snap.Result)
	}

	w = doJSON(t, s.router, http.MethodPost, path, resp.Tokens[game.SideA], ActionRequest{Kind: game.ActionAttack, MoveID: "finisher"})
	if w.Code != http.StatusConflict {
		t.Fatalf("action after the end: expected 409, got %d", w.Code)
	}
}

func TestSubmitAction_Rejections(t *testing.T) {
	s := newTestServer(t)
	resp := startBattle(t, s)
	other := startBattle(t, s)
	path := "/api/battles/" + resp.BattleID + "/actions"
	attack := ActionRequest{Kind: game.ActionAttack, MoveID: "finisher"}

	if w := doJSON(t, s.router, http.MethodPost, path, "", attack); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}
	if w := doJSON(t, s.router, http.MethodPost, path, "garbage", attack); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}
	if w := doJSON(t, s.router, http.MethodPost, path, other.Tokens[game.SideA], attack); w.Code != http.StatusForbidden {
		t.Fatalf("foreign token: expected 403, got %d", w.Code)
	}

	w := doJSON(t, s.router, http.MethodPost, path, resp.Tokens[game.SideA], ActionRequest{Kind: game.ActionAttack, MoveID: "hyper_beam"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown move: expected 400, got %d", w.Code)
	}
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["reason"] != string(battle.ReasonUnknownMove) {
		t.Fatalf("expected unknown_move, got %v", out)
	}

	if w := doJSON(t, s.router, http.MethodPost, path, resp.Tokens[game.SideA], map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing kind: expected 400, got %d", w.Code)
	}
}

func TestGetBattle_FallsBackToArchive(t *testing.T) {
	s := newTestServer(t)
	s.archive.results["old"] = &storage.BattleResultRecord{
		BattleID: "old",
		Winner:   "b",
		Outcome:  "completed",
		Turns:    4,
		Snapshot: []byte(`{"id":"old"}`),
		EndedAt:  time.Unix(100, 0).UTC(),
	}

	w := doJSON(t, s.router, http.MethodGet, "/api/battles/old", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["outcome"] != "completed" || out["winner"] != "b" {
		t.Fatalf("unexpected archived view %v", out)
	}
	if snap, ok := out["snapshot"].(map[string]any); !ok || snap["id"] != "old" {
		t.Fatalf("snapshot should be embedded as JSON, got %v", out["snapshot"])
	}

	if w := doJSON(t, s.router, http.MethodGet, "/api/battles/missing", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = doJSON(t, s.router, http.MethodGet, "/api/results?limit=5", "", nil)
	var list []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one listed result, got %s", w.Body.String())
	}
	if _, ok := list[0]["snapshot"]; ok {
		t.Fatalf("listing must not embed snapshots")
	}
}

func TestReferenceAndVersion(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/reference/species", "/api/reference/moves", "/api/version"} {
		if w := doJSON(t, s.router, http.MethodGet, path, "", nil); w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestStreamEvents_RelaysUntilBattleEnds(t *testing.T) {
	s := newTestServer(t)
	resp := startBattle(t, s)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/battles/" + resp.BattleID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var first game.Event
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&first); err != nil || first.Type != game.EventBattleStarted {
		t.Fatalf("expected battle_started first, got %+v (%v)", first, err)
	}

	w := doJSON(t, s.router, http.MethodPost, "/api/battles/"+resp.BattleID+"/actions", resp.Tokens[game.SideA], ActionRequest{Kind: game.ActionAttack, MoveID: "finisher"})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: %d", w.Code)
	}

	last := first
	for {
		var ev game.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("stream ended with %v", err)
			}
			break
		}
		if ev.Seq != last.Seq+1 {
			t.Fatalf("gap in stream: %d after %d", ev.Seq, last.Seq)
		}
		last = ev
	}
	if last.Type != game.EventBattleEnded {
		t.Fatalf("expected battle_ended last, got %s", last.Type)
	}
}

func TestStreamEvents_UnknownBattle(t *testing.T) {
	s := newTestServer(t)
	if w := doJSON(t, s.router, http.MethodGet, "/api/battles/nope/stream", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
