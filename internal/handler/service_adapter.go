package handler

import (
	"context"

	"github.com/hitoshi/starfav/internal/favorite"
	"github.com/hitoshi/starfav/internal/model"
)

// favoriteResponse はお気に入りのAPIレスポンス。
// キーは固定で、対象にならない列と入れ子エンティティはnullとして出力する。
type favoriteResponse struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	PeopleID    *int64           `json:"people_id"`
	PlanetID    *int64           `json:"planet_id"`
	VehiculesID *int64           `json:"vehicules_id"`
	People      *personResponse  `json:"people"`
	Planet      *planetResponse  `json:"planet"`
	Vehicules   *vehicleResponse `json:"vehicules"`
}

// FavoriteServiceAdapter は favorite.Service を FavoriteServiceInterface に適合させるアダプタ。
type FavoriteServiceAdapter struct {
	svc *favorite.Service
}

// NewFavoriteServiceAdapter はFavoriteServiceAdapterを生成する。
func NewFavoriteServiceAdapter(svc *favorite.Service) *FavoriteServiceAdapter {
	return &FavoriteServiceAdapter{svc: svc}
}

// List はユーザーのお気に入り一覧をhandlerレスポンス型で返す。
func (a *FavoriteServiceAdapter) List(ctx context.Context, userID int64) ([]favoriteResponse, error) {
	details, err := a.svc.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mapSlice(details, toFavoriteResponse), nil
}

// Add はお気に入りを追加しhandlerレスポンス型で返す。
func (a *FavoriteServiceAdapter) Add(ctx context.Context, userID int64, target model.Target) (*favoriteResponse, error) {
	detail, err := a.svc.Add(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	resp := toFavoriteResponse(*detail)
	return &resp, nil
}

// Remove はお気に入りを1件削除する。
func (a *FavoriteServiceAdapter) Remove(ctx context.Context, userID int64, target model.Target) error {
	return a.svc.Remove(ctx, userID, target)
}

// toFavoriteResponse はドメインのFavoriteDetailをhandlerのレスポンス型に変換する。
func toFavoriteResponse(d model.FavoriteDetail) favoriteResponse {
	personID, planetID, vehicleID := d.Target.Columns()
	return favoriteResponse{
		ID:          d.ID,
		UserID:      d.UserID,
		PeopleID:    personID,
		PlanetID:    planetID,
		VehiculesID: vehicleID,
		People:      toPersonResponse(d.Person),
		Planet:      toPlanetResponse(d.Planet),
		Vehicules:   toVehicleResponse(d.Vehicle),
	}
}

var _ FavoriteServiceInterface = (*FavoriteServiceAdapter)(nil)
