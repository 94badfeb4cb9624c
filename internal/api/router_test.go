package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/models/tetris"
	services "github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/services/tetris"
)

const testSecret = "router-test-secret"

type testServer struct {
	*httptest.Server
	sm *services.SessionManager
}

func newTestServer(t *testing.T, bypass bool) *testServer {
	t.Helper()
	sm := services.NewSessionManager(services.ManagerConfig{
		DefaultRows:  16,
		DefaultCols:  16,
		MaxDimension: 32,
		IdleTimeout:  time.Hour,
		ReapInterval: time.Hour,
		PieceSeed:    1,
	})
	srv := httptest.NewServer(NewRouter(sm, middleware.NewAuthenticator(testSecret, bypass), []string{"http://localhost:3000"}))
	t.Cleanup(func() {
		sm.Shutdown()
		srv.Close()
	})
	return &testServer{Server: srv, sm: sm}
}

// do はリクエストを送信し、ステータスコードとボディを返します。user が空でなければ X-User-ID を付けます。
func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(middleware.BypassUserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (s *testServer) createGame(t *testing.T, user string, body interface{}) services.SessionSnapshot {
	t.Helper()
	status, data := s.do(t, http.MethodPost, "/api/games", user, body)
	require.Equal(t, http.StatusCreated, status, string(data))
	var snap services.SessionSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	status, data := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))

	status, data = s.do(t, http.MethodGet, "/api/pieces", "", nil)
	require.Equal(t, http.StatusOK, status)
	var body struct {
		Pieces []tetris.Piece `json:"pieces"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Len(t, body.Pieces, 7)
	assert.Equal(t, tetris.TypeI, body.Pieces[0].Type)
}

func TestGameRoutes_RequireAuth(t *testing.T) {
	s := newTestServer(t, false)

	status, _ := s.do(t, http.MethodPost, "/api/games", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/games", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var snap services.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "user-1", snap.OwnerID)
}

func TestCreateGame(t *testing.T) {
	s := newTestServer(t, true)

	snap := s.createGame(t, "alice", nil)
	assert.Equal(t, "alice", snap.OwnerID)
	assert.Equal(t, 16, snap.Game.Rows)
	assert.Equal(t, 16, snap.Game.Cols)
	assert.Equal(t, services.StatusPlaying, snap.Game.Status)

	snap = s.createGame(t, "alice", map[string]int{"rows": 7, "cols": 9})
	assert.Equal(t, 7, snap.Game.Rows)
	assert.Equal(t, 9, snap.Game.Cols)

	status, data := s.do(t, http.MethodPost, "/api/games", "alice", map[string]int{"rows": 100, "cols": 5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(data), "invalid board dimension")
}

func TestGameLifecycle(t *testing.T) {
	s := newTestServer(t, true)
	snap := s.createGame(t, "alice", map[string]int{"rows": 8, "cols": 8})
	base := "/api/games/" + snap.ID

	status, _ := s.do(t, http.MethodGet, base, "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodGet, "/api/games/missing", "alice", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// 空のボードではどのピースも (0,0) に置ける
	status, data := s.do(t, http.MethodPost, base+"/place", "alice", map[string]int{"row": 0, "col": 0})
	require.Equal(t, http.StatusOK, status)
	var placed struct {
		Placed bool                     `json:"placed"`
		State  services.SessionSnapshot `json:"state"`
	}
	require.NoError(t, json.Unmarshal(data, &placed))
	assert.True(t, placed.Placed)
	assert.Equal(t, 4*services.PointsPerCell, placed.State.Game.Score)
	assert.Equal(t, 1, placed.State.Game.Placements)

	// 同じアンカーには置けず、状態は変わらない
	status, data = s.do(t, http.MethodPost, base+"/place", "alice", map[string]int{"row": 0, "col": 0})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &placed))
	assert.False(t, placed.Placed)
	assert.Equal(t, 4*services.PointsPerCell, placed.State.Game.Score)

	status, _ = s.do(t, http.MethodPost, base+"/place", "alice", map[string]int{"row": 0})
	assert.Equal(t, http.StatusBadRequest, status)

	status, data = s.do(t, http.MethodGet, base+"/preview?row=0&col=0", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	var preview services.PreviewSnapshot
	require.NoError(t, json.Unmarshal(data, &preview))
	assert.Len(t, preview.Cells, 4)

	status, data = s.do(t, http.MethodGet, base+"/preview?row=8&col=8", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &preview))
	assert.Empty(t, preview.Cells)
	assert.False(t, preview.Placeable)

	status, _ = s.do(t, http.MethodGet, base+"/preview?row=x&col=0", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, base+"/rotate", "alice", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, base+"/resize", "alice", map[string]int{"rows": 0, "cols": 5})
	assert.Equal(t, http.StatusBadRequest, status)

	status, data = s.do(t, http.MethodPost, base+"/resize", "alice", map[string]int{"rows": 5, "cols": 6})
	require.Equal(t, http.StatusOK, status)
	var resized struct {
		Changed bool                     `json:"changed"`
		State   services.SessionSnapshot `json:"state"`
	}
	require.NoError(t, json.Unmarshal(data, &resized))
	assert.True(t, resized.Changed)
	assert.Equal(t, 5, resized.State.Game.Rows)
	assert.Equal(t, 6, resized.State.Game.Cols)
	assert.Equal(t, 0, resized.State.Game.Score)

	status, _ = s.do(t, http.MethodPost, base+"/reset", "alice", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodDelete, base, "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodDelete, base, "alice", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.do(t, http.MethodGet, base, "alice", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func readServerMessage(t *testing.T, conn *websocket.Conn) services.ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg services.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket(t *testing.T) {
	s := newTestServer(t, true)
	snap := s.createGame(t, "alice", map[string]int{"rows": 8, "cols": 8})

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/games/" + snap.ID + "/ws"
	header := http.Header{}
	header.Set(middleware.BypassUserHeader, "alice")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": ""}))
	var ack map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "auth_success", ack["type"])

	initial := readServerMessage(t, conn)
	require.Equal(t, services.MessageTypeState, initial.Type)
	require.NotNil(t, initial.State)
	assert.Equal(t, snap.ID, initial.State.ID)

	require.NoError(t, conn.WriteJSON(services.Command{Action: services.ActionPlace, Row: 0, Col: 0}))
	update := readServerMessage(t, conn)
	require.Equal(t, services.MessageTypeState, update.Type)
	assert.Equal(t, 4*services.PointsPerCell, update.State.Game.Score)

	require.NoError(t, conn.WriteJSON(services.Command{Action: services.ActionPreview, Row: 7, Col: 7}))
	preview := readServerMessage(t, conn)
	require.Equal(t, services.MessageTypePreview, preview.Type)
	require.NotNil(t, preview.Preview)
	assert.Equal(t, 7, preview.Preview.Row)

	require.NoError(t, conn.WriteJSON(services.Command{Action: "jump"}))
	errMsg := readServerMessage(t, conn)
	assert.Equal(t, services.MessageTypeError, errMsg.Type)
	assert.Contains(t, errMsg.Error, "unknown action")
}

func TestWebSocket_RejectsOtherUser(t *testing.T) {
	s := newTestServer(t, true)
	snap := s.createGame(t, "alice", nil)

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/games/" + snap.ID + "/ws"
	header := http.Header{}
	header.Set(middleware.BypassUserHeader, "bob")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth"}))
	var ack map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "auth_success", ack["type"])

	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, services.MessageTypeError, msg["type"])
	assert.Contains(t, msg["error"], "another user")
}
