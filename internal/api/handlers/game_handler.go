package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/services/tetris"
)

// 認証メッセージを待つ時間
const authTimeout = 10 * time.Second

// GameHandler はゲーム関連のHTTPリクエスト（作成、操作、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *tetris.SessionManager    // ゲームセッションの管理サービス
	auth           *middleware.Authenticator // WebSocketハンドシェイクでのトークン検証に使う
	upgrader       websocket.Upgrader
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//   sm             : セッションマネージャーへのポインタ
//   auth           : トークン検証に使う Authenticator
//   allowedOrigins : WebSocket接続を許可するオリジン（"*" で全て許可）
// Returns:
//   *GameHandler: 新しく作成された GameHandler のポインタ
func NewGameHandler(sm *tetris.SessionManager, auth *middleware.Authenticator, allowedOrigins []string) *GameHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	_, allowAll := origins["*"]

	return &GameHandler{
		sessionManager: sm,
		auth:           auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

type dimensionsRequest struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

type placeRequest struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type placeResponse struct {
	Placed bool                    `json:"placed"`
	State  *tetris.SessionSnapshot `json:"state"`
}

type actionResponse struct {
	Changed bool                    `json:"changed"`
	State   *tetris.SessionSnapshot `json:"state"`
}

// requestContext はユーザーIDとURLのゲームIDを取り出します。取り出せない場合はエラーレスポンスを書き込み false を返します。
func requestContext(w http.ResponseWriter, r *http.Request) (userID, gameID string, ok bool) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, "認証が必要です")
		return "", "", false
	}
	gameID = mux.Vars(r)["gameID"]
	if gameID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "ゲームIDが必要です")
		return "", "", false
	}
	return userID, gameID, true
}

// CreateGame は新しいゲームセッションを作成するためのHTTPハンドラーです。
// POST /api/games  {"rows": 16, "cols": 16}（省略時は設定のデフォルト値）
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, "認証が必要です")
		return
	}

	// ボディが空の場合はデフォルトの寸法を使う
	var req dimensionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディのパースに失敗しました")
		return
	}

	snap, err := h.sessionManager.CreateSession(userID, req.Rows, req.Cols)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("[GameHandler] failed to create game")
		writeServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, snap)
}

// GetGame はゲームの現在の状態を返します。
// GET /api/games/{gameID}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	userID, gameID, ok := requestContext(w, r)
	if !ok {
		return
	}
	snap, err := h.sessionManager.Snapshot(gameID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, snap)
}

// DeleteGame はゲームセッションを終了します。
// DELETE /api/games/{gameID}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	userID, gameID, ok := requestContext(w, r)
	if !ok {
		return
	}
	if err := h.sessionManager.EndSession(gameID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Place は現在のピースを指定されたアンカーに置きます。置けない場合は placed=false で状態は変わりません。
// POST /api/games/{gameID}/place  {"row": 0, "col": 0}
func (h *GameHandler) Place(w http.ResponseWriter, r *http.Request) {
	userID, gameID, ok := requestContext(w, r)
	if !ok {
		return
	}
	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディのパースに失敗しました")
		return
	}
	if req.Row == nil || req.Col == nil {
		WriteErrorResponse(w, http.StatusBadRequest, "row と col が必要です")
		return
	}

	snap, result, err := h.sessionManager.Apply(gameID, userID, tetris.Command{Action: tetris.ActionPlace, Row: *req.Row, Col: *req.Col})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, placeResponse{Placed: result.Changed, State: snap})
}

// Rotate は現在のピースを時計回りに90度回転させます。
// POST /api/games/{gameID}/rotate
func (h *GameHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	h.applySimple(w, r, tetris.Command{Action: tetris.ActionRotate})
}

// Reset は同じ寸法で新しいゲームを開始します。
// POST /api/games/{gameID}/reset
func (h *GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.applySimple(w, r, tetris.Command{Action: tetris.ActionReset})
}

// Resize はボードの寸法を変更して新しいゲームを開始します。
// POST /api/games/{gameID}/resize  {"rows": 10, "cols": 12}
func (h *GameHandler) Resize(w http.ResponseWriter, r *http.Request) {
	var req dimensionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディのパースに失敗しました")
		return
	}
	h.applySimple(w, r, tetris.Command{Action: tetris.ActionResize, Rows: req.Rows, Cols: req.Cols})
}

func (h *GameHandler) applySimple(w http.ResponseWriter, r *http.Request, cmd tetris.Command) {
	userID, gameID, ok := requestContext(w, r)
	if !ok {
		return
	}
	snap, result, err := h.sessionManager.Apply(gameID, userID, cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, actionResponse{Changed: result.Changed, State: snap})
}

// Preview はホバー中のアンカーに対してハイライトするセルと配置可否を返します。
// GET /api/games/{gameID}/preview?row=0&col=0
func (h *GameHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, gameID, ok := requestContext(w, r)
	if !ok {
		return
	}
	row, errRow := strconv.Atoi(r.URL.Query().Get("row"))
	col, errCol := strconv.Atoi(r.URL.Query().Get("col"))
	if errRow != nil || errCol != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "row と col は整数で指定してください")
		return
	}

	_, result, err := h.sessionManager.Apply(gameID, userID, tetris.Command{Action: tetris.ActionPreview, Row: row, Col: col})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result.Preview)
}

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleWebSocketConnection はHTTP接続をWebSocketプロトコルにアップグレードし、
// 認証メッセージを検証した後、接続をセッションマネージャーに引き渡します。
// GET /api/games/{gameID}/ws
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	if gameID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "WebSocket接続にはゲームIDが必要です")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithField("game_id", gameID).Warn("[GameHandler] failed to upgrade to websocket")
		return
	}

	userID, err := h.authenticateConn(conn, r)
	if err != nil {
		log.WithError(err).WithField("game_id", gameID).Warn("[GameHandler] websocket auth failed")
		conn.WriteJSON(map[string]string{"type": tetris.MessageTypeError, "error": err.Error()})
		conn.Close()
		return
	}
	conn.WriteJSON(map[string]string{"type": "auth_success", "message": "Authentication successful"})

	// RegisterClient 内で readPump と writePump が開始される
	if err := h.sessionManager.RegisterClient(gameID, userID, conn); err != nil {
		log.WithError(err).WithFields(log.Fields{"game_id": gameID, "user_id": userID}).Warn("[GameHandler] failed to register client")
		conn.WriteJSON(map[string]string{"type": tetris.MessageTypeError, "error": err.Error()})
		conn.Close()
	}
}

var errExpectedAuth = errors.New("expected auth message")

// authenticateConn は最初のメッセージとして {"type":"auth","token":"..."} を待ち、ユーザーIDを返します。
func (h *GameHandler) authenticateConn(conn *websocket.Conn, r *http.Request) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}
	var msg authMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "auth" {
		return "", errExpectedAuth
	}

	if h.auth.Bypass {
		return h.auth.BypassUserID(r), nil
	}
	return h.auth.UserIDFromToken(msg.Token)
}
