package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/services/tetris"
)

// NewRouter はAPIのルーティングを構成し、CORSを適用したハンドラーを返します。
func NewRouter(sm *tetris.SessionManager, auth *middleware.Authenticator, allowedOrigins []string) http.Handler {
	gameHandler := handlers.NewGameHandler(sm, auth, allowedOrigins)

	r := mux.NewRouter()
	// 認証不要な公開エンドポイント
	r.HandleFunc("/api/health", handlers.HealthHandler).Methods("GET")
	r.HandleFunc("/api/pieces", handlers.PiecesHandler).Methods("GET")

	// WebSocketはヘッダーを付けられないため、接続後の認証メッセージで認証する
	r.HandleFunc("/api/games/{gameID}/ws", gameHandler.HandleWebSocketConnection).Methods("GET")

	// 認証が必要なルート
	games := r.PathPrefix("/api/games").Subrouter()
	games.Use(auth.Middleware)
	games.HandleFunc("", gameHandler.CreateGame).Methods("POST")
	games.HandleFunc("/{gameID}", gameHandler.GetGame).Methods("GET")
	games.HandleFunc("/{gameID}", gameHandler.DeleteGame).Methods("DELETE")
	games.HandleFunc("/{gameID}/place", gameHandler.Place).Methods("POST")
	games.HandleFunc("/{gameID}/rotate", gameHandler.Rotate).Methods("POST")
	games.HandleFunc("/{gameID}/resize", gameHandler.Resize).Methods("POST")
	games.HandleFunc("/{gameID}/reset", gameHandler.Reset).Methods("POST")
	games.HandleFunc("/{gameID}/preview", gameHandler.Preview).Methods("GET")

	return middleware.CORSHandler(allowedOrigins)(r)
}
