package tetris

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/models/tetris"
)

var (
	// ErrSessionNotFound は指定されたゲームセッションが存在しない場合に返されます。
	ErrSessionNotFound = errors.New("game session not found")
	// ErrForbidden は他のユーザーのゲームセッションを操作しようとした場合に返されます。
	ErrForbidden = errors.New("game session belongs to another user")
)

// ManagerConfig は SessionManager の設定です。
type ManagerConfig struct {
	DefaultRows  int           // 寸法が指定されなかった場合の行数
	DefaultCols  int           // 寸法が指定されなかった場合の列数
	MaxDimension int           // ボードの一辺の上限
	IdleTimeout  time.Duration // この時間操作がなく接続もないセッションは削除される
	ReapInterval time.Duration // アイドルセッションを掃除する間隔
	PieceSeed    int64         // 0以外なら全セッションでこのシードを使う（再現用）
}

// GameSession は1人のプレイヤーのゲームセッションです。
// mu によって1つの操作が完了するまで次の操作は待たされます。
type GameSession struct {
	ID           string
	OwnerID      string
	CreatedAt    time.Time
	lastActiveAt time.Time
	state        *GameState
	clients      map[*Client]struct{}
	ended        bool
	mu           sync.Mutex
}

// SessionSnapshot はAPIやWebSocketで返すセッションの状態です。
type SessionSnapshot struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"owner_id"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActiveAt time.Time    `json:"last_active_at"`
	Game         GameSnapshot `json:"game"`
}

// snapshotLocked は mu を保持した状態で呼び出してください。
func (gs *GameSession) snapshotLocked() *SessionSnapshot {
	return &SessionSnapshot{
		ID:           gs.ID,
		OwnerID:      gs.OwnerID,
		CreatedAt:    gs.CreatedAt,
		LastActiveAt: gs.lastActiveAt,
		Game:         gs.state.Snapshot(),
	}
}

// broadcastLocked は購読中の全クライアントに現在の状態を送信します。mu を保持した状態で呼び出してください。
func (gs *GameSession) broadcastLocked() {
	if len(gs.clients) == 0 {
		return
	}
	data, err := json.Marshal(ServerMessage{Type: MessageTypeState, State: gs.snapshotLocked()})
	if err != nil {
		log.WithError(err).WithField("game_id", gs.ID).Error("[SessionManager] failed to marshal state")
		return
	}
	for client := range gs.clients {
		if !client.SafeSend(data) {
			log.WithFields(log.Fields{"game_id": gs.ID, "user_id": client.UserID}).Warn("[SessionManager] dropping state for slow client")
		}
	}
}

// SessionManager はゲームセッションとWebSocketクライアント接続の全体を管理します。
type SessionManager struct {
	sessions  map[string]*GameSession // gameID -> GameSession
	mu        sync.RWMutex            // sessions へのアクセスを保護する。ロック順は mu -> GameSession.mu
	cfg       ManagerConfig
	newDrawer func() tetris.PieceDrawer
	now       func() time.Time
	quit      chan struct{}
	quitOnce  sync.Once
}

// NewSessionManager は新しい SessionManager を作成し、アイドルセッションの掃除ループをバックグラウンドで開始します。
// 不要になったら Shutdown を呼び出してください。
func NewSessionManager(cfg ManagerConfig) *SessionManager {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = DefaultMaxDimension
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	sm := &SessionManager{
		sessions: make(map[string]*GameSession),
		cfg:      cfg,
		now:      time.Now,
		quit:     make(chan struct{}),
	}
	sm.newDrawer = func() tetris.PieceDrawer {
		seed := cfg.PieceSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return tetris.NewRandomDrawer(seed)
	}
	go sm.Run()
	return sm
}

// Run はアイドルセッションを定期的に削除するループです。Shutdown で終了します。
func (sm *SessionManager) Run() {
	ticker := time.NewTicker(sm.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := sm.reapIdleSessions(sm.now()); removed > 0 {
				log.WithField("removed", removed).Info("[SessionManager] reaped idle sessions")
			}
		case <-sm.quit:
			log.Info("[SessionManager] reaper stopped")
			return
		}
	}
}

// reapIdleSessions は接続中のクライアントがなく、IdleTimeout 以上操作されていないセッションを削除します。
func (sm *SessionManager) reapIdleSessions(now time.Time) int {
	if sm.cfg.IdleTimeout <= 0 {
		return 0
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for id, session := range sm.sessions {
		session.mu.Lock()
		idle := len(session.clients) == 0 && now.Sub(session.lastActiveAt) >= sm.cfg.IdleTimeout
		if idle {
			session.ended = true
			delete(sm.sessions, id)
			removed++
		}
		session.mu.Unlock()
	}
	return removed
}

// CreateSession は新しいゲームセッションを作成します。
//
// Parameters:
//   ownerID    : セッションを作成したユーザーのID
//   rows, cols : ボードの寸法（0 の場合は設定のデフォルト値）
// Returns:
//   *SessionSnapshot: 作成されたセッションの状態
//   error           : 寸法が不正な場合は ErrInvalidDimension
func (sm *SessionManager) CreateSession(ownerID string, rows, cols int) (*SessionSnapshot, error) {
	if rows == 0 {
		rows = sm.cfg.DefaultRows
	}
	if cols == 0 {
		cols = sm.cfg.DefaultCols
	}

	state, err := NewGameState(rows, cols, sm.cfg.MaxDimension, sm.newDrawer())
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	now := sm.now()
	session := &GameSession{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		CreatedAt:    now,
		lastActiveAt: now,
		state:        state,
		clients:      make(map[*Client]struct{}),
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	log.WithFields(log.Fields{
		"game_id": session.ID,
		"user_id": ownerID,
		"rows":    rows,
		"cols":    cols,
	}).Info("[SessionManager] created game session")

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.snapshotLocked(), nil
}

// lookup はセッションを取得し、所有者を確認します。
func (sm *SessionManager) lookup(gameID, userID string) (*GameSession, error) {
	sm.mu.RLock()
	session, ok := sm.sessions[gameID]
	sm.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.OwnerID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

// Snapshot は指定されたセッションの現在の状態を返します。
func (sm *SessionManager) Snapshot(gameID, userID string) (*SessionSnapshot, error) {
	session, err := sm.lookup(gameID, userID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.ended {
		return nil, ErrSessionNotFound
	}
	return session.snapshotLocked(), nil
}

// Apply はプレイヤーの操作をセッションに適用し、状態が変化した場合は購読中のクライアントに通知します。
func (sm *SessionManager) Apply(gameID, userID string, cmd Command) (*SessionSnapshot, CommandResult, error) {
	session, err := sm.lookup(gameID, userID)
	if err != nil {
		return nil, CommandResult{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.ended {
		return nil, CommandResult{}, ErrSessionNotFound
	}

	result, err := ApplyCommand(session.state, cmd)
	if err != nil {
		return nil, CommandResult{}, err
	}
	session.lastActiveAt = sm.now()

	entry := log.WithFields(log.Fields{"game_id": gameID, "user_id": userID, "action": cmd.Action})
	if result.Changed {
		entry.WithFields(log.Fields{
			"score":     session.state.Score(),
			"game_over": session.state.IsGameOver(),
		}).Debug("[SessionManager] command applied")
		if session.state.IsGameOver() {
			entry.WithField("score", session.state.Score()).Info("[SessionManager] game over")
		}
		session.broadcastLocked()
	} else if cmd.Action != ActionPreview {
		entry.Debug("[SessionManager] command rejected")
	}

	return session.snapshotLocked(), result, nil
}

// EndSession はセッションを終了し、接続中のクライアントを切断します。
func (sm *SessionManager) EndSession(gameID, userID string) error {
	session, err := sm.lookup(gameID, userID)
	if err != nil {
		return err
	}

	sm.mu.Lock()
	delete(sm.sessions, gameID)
	sm.mu.Unlock()

	session.mu.Lock()
	defer session.mu.Unlock()
	session.ended = true
	for client := range session.clients {
		client.SafeClose()
	}
	session.clients = make(map[*Client]struct{})

	log.WithFields(log.Fields{
		"game_id": gameID,
		"user_id": userID,
		"score":   session.state.Score(),
	}).Info("[SessionManager] game session ended")
	return nil
}

// SessionCount は現在保持しているセッションの数を返します。
func (sm *SessionManager) SessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// RegisterClient は認証済みのWebSocket接続をセッションに登録し、読み書きのゴルーチンを開始します。
// 登録直後に現在の状態を1回送信します。
func (sm *SessionManager) RegisterClient(gameID, userID string, conn *websocket.Conn) error {
	session, err := sm.lookup(gameID, userID)
	if err != nil {
		return err
	}

	client := newClient(gameID, userID, conn)

	session.mu.Lock()
	if session.ended {
		session.mu.Unlock()
		return ErrSessionNotFound
	}
	session.clients[client] = struct{}{}
	session.lastActiveAt = sm.now()
	client.SendMessage(ServerMessage{Type: MessageTypeState, State: session.snapshotLocked()})
	session.mu.Unlock()

	go client.writePump()
	go sm.readPump(session, client)

	log.WithFields(log.Fields{"game_id": gameID, "user_id": userID}).Info("[SessionManager] client registered")
	return nil
}

func (sm *SessionManager) unregisterClient(session *GameSession, client *Client) {
	session.mu.Lock()
	delete(session.clients, client)
	session.lastActiveAt = sm.now()
	session.mu.Unlock()
	client.SafeClose()
}

// readPump はクライアントからのWebSocketメッセージを読み込み、操作としてセッションに適用します。
func (sm *SessionManager) readPump(session *GameSession, client *Client) {
	defer func() {
		sm.unregisterClient(session, client)
		log.WithFields(log.Fields{"game_id": client.GameID, "user_id": client.UserID}).Info("[SessionManager] client disconnected")
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("user_id", client.UserID).Warn("[SessionManager] unexpected websocket close")
			}
			return
		}
		if len(message) == 0 {
			continue
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			client.SendMessage(ServerMessage{Type: MessageTypeError, Error: "invalid message"})
			continue
		}

		_, result, err := sm.Apply(client.GameID, client.UserID, cmd)
		if err != nil {
			client.SendMessage(ServerMessage{Type: MessageTypeError, Error: err.Error()})
			if errors.Is(err, ErrSessionNotFound) {
				return
			}
			continue
		}
		if result.Preview != nil {
			client.SendMessage(ServerMessage{Type: MessageTypePreview, Preview: result.Preview})
		}
	}
}

// Shutdown は掃除ループを止め、全てのクライアントを切断します。何度呼んでも安全です。
func (sm *SessionManager) Shutdown() {
	sm.quitOnce.Do(func() {
		close(sm.quit)

		sm.mu.Lock()
		sessions := sm.sessions
		sm.sessions = make(map[string]*GameSession)
		sm.mu.Unlock()

		for _, session := range sessions {
			session.mu.Lock()
			session.ended = true
			for client := range session.clients {
				client.SafeClose()
			}
			session.mu.Unlock()
		}
		log.WithField("sessions", len(sessions)).Info("[SessionManager] shutdown complete")
	})
}
