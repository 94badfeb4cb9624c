package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/models/tetris"
)

// HealthHandler はサーバーの死活確認用エンドポイントです。
// GET /api/health
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PiecesHandler はピースのカタログ（7種類の基本形）を返します。ビューがピースを描画するために使います。
// GET /api/pieces
func PiecesHandler(w http.ResponseWriter, r *http.Request) {
	log.Debug("[PublicHandler] request to /api/pieces")
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pieces": tetris.Catalog(),
	})
}
