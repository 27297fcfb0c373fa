package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/starfav/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
// レスポンス型への変換はFavoriteServiceAdapterが行う。
type FavoriteServiceInterface interface {
	List(ctx context.Context, userID int64) ([]favoriteResponse, error)
	Add(ctx context.Context, userID int64, target model.Target) (*favoriteResponse, error)
	Remove(ctx context.Context, userID int64, target model.Target) error
}

// FavoriteHandler はお気に入り台帳のHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// ListFavorites はユーザーのお気に入り一覧を返す。0件の場合は [] を返す。
// GET /users/{user_id}/favorites
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	favorites, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if favorites == nil {
		favorites = []favoriteResponse{}
	}
	writeJSON(w, http.StatusOK, favorites)
}

// AddFavorite はお気に入りを1件追加する。
// POST /users/{user_id}/favorite/{kind}/{target_id}
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, target, err := parseFavoriteParams(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	fav, err := h.service.Add(r.Context(), userID, target)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

// RemoveFavorite は一致するお気に入りのうち最も古い1件を削除する。
// DELETE /users/{user_id}/favorite/{kind}/{target_id}
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, target, err := parseFavoriteParams(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.Remove(r.Context(), userID, target); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("%s をユーザー %d のお気に入りから削除しました。", target, userID),
	})
}

// parseFavoriteParams はパスパラメータからユーザーIDと対象を取り出す。
func parseFavoriteParams(r *http.Request) (int64, model.Target, error) {
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		return 0, model.Target{}, err
	}

	rawKind := chi.URLParam(r, "kind")
	kind, err := model.ParseTargetKind(rawKind)
	if err != nil {
		return 0, model.Target{}, model.NewUnknownTargetKindError(rawKind)
	}

	targetID, err := parseIDParam(r, "target_id")
	if err != nil {
		return 0, model.Target{}, err
	}

	// 0や存在しないIDはサービスの存在確認で404になる
	target, err := model.NewTarget(kind, targetID)
	if err != nil {
		return 0, model.Target{}, model.NewInvalidInputError(err.Error())
	}
	return userID, target, nil
}
