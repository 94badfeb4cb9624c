package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/services/tetris"
)

// ExtractUserIDFromContext はリクエストのコンテキストからユーザーIDを抽出します。
func ExtractUserIDFromContext(r *http.Request) (string, error) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		return "", fmt.Errorf("ユーザーIDがコンテキストに見つかりません")
	}
	return userID, nil
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	WriteJSONResponse(w, statusCode, map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("[Handlers] failed to encode response")
	}
}

// writeServiceError はサービス層のエラーを対応するHTTPステータスに変換して書き込みます。
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tetris.ErrSessionNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "指定されたゲームは見つかりませんでした")
	case errors.Is(err, tetris.ErrForbidden):
		WriteErrorResponse(w, http.StatusForbidden, "このゲームを操作する権限がありません")
	case errors.Is(err, tetris.ErrInvalidDimension):
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tetris.ErrUnknownAction):
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
	default:
		log.WithError(err).Error("[Handlers] unexpected service error")
		WriteErrorResponse(w, http.StatusInternalServerError, "サーバー内部エラーが発生しました")
	}
}
