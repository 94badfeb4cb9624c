package tetris

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 300 * time.Second
	pingPeriod     = 60 * time.Second
	maxMessageSize = 1024
	sendBufferSize = 64
)

// サーバーからクライアントへ送るメッセージの種類です。
const (
	MessageTypeState   = "state"
	MessageTypePreview = "preview"
	MessageTypeError   = "error"
)

// ServerMessage はWebSocketでクライアントへ送信するメッセージです。
type ServerMessage struct {
	Type    string           `json:"type"`
	State   *SessionSnapshot `json:"state,omitempty"`
	Preview *PreviewSnapshot `json:"preview,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Client はWebSocket接続を持つ単一のビューを表します。
type Client struct {
	UserID string          // このクライアントに紐づくユーザーのID
	GameID string          // 購読しているゲームセッションのID
	Conn   *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send   chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	closed bool
	mu     sync.Mutex
}

func newClient(gameID, userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		GameID: gameID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）。
// バッファがいっぱいの場合は送信せずに false を返します。
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// SafeClose は安全にチャネルを閉じます。何度呼んでも問題ありません。
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// SendMessage はメッセージをJSONにしてクライアントの送信キューに積みます。
func (c *Client) SendMessage(msg ServerMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).WithField("user_id", c.UserID).Error("[Client] failed to marshal message")
		return false
	}
	if !c.SafeSend(data) {
		log.WithFields(log.Fields{"user_id": c.UserID, "game_id": c.GameID}).Warn("[Client] send buffer full or closed, dropping message")
		return false
	}
	return true
}

// writePump は Send チャネルのメッセージをWebSocketコネクションに書き込みます。
// クライアントごとにこのゴルーチンが動作します。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			log.WithError(err).WithField("user_id", c.UserID).Debug("[Client] error closing connection")
		}
		log.WithFields(log.Fields{"user_id": c.UserID, "game_id": c.GameID}).Debug("[Client] writePump ended")
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// マネージャーがチャネルを閉じた（セッション終了など）
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithError(err).WithField("user_id", c.UserID).Warn("[Client] error writing message")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithError(err).WithField("user_id", c.UserID).Warn("[Client] error sending ping")
				return
			}
		}
	}
}
