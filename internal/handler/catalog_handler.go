package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/starfav/internal/model"
)

// CatalogServiceInterface は参照データハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	ListPeople(ctx context.Context) ([]*model.Person, error)
	GetPerson(ctx context.Context, id int64) (*model.Person, error)
	DeletePerson(ctx context.Context, id int64) error

	ListPlanets(ctx context.Context) ([]*model.Planet, error)
	GetPlanet(ctx context.Context, id int64) (*model.Planet, error)
	DeletePlanet(ctx context.Context, id int64) error

	ListVehicles(ctx context.Context) ([]*model.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (*model.Vehicle, error)
	DeleteVehicle(ctx context.Context, id int64) error
}

// CatalogHandler は登場人物・惑星・乗り物の参照APIのHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// personResponse は登場人物のAPIレスポンス。
type personResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	BirthYear string `json:"birth_year"`
	Height    int    `json:"height"`
}

// planetResponse は惑星のAPIレスポンス。
type planetResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Population int64  `json:"population"`
}

// vehicleResponse は乗り物のAPIレスポンス。
type vehicleResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Crew       int    `json:"crew"`
	Passengers int    `json:"passengers"`
}

func toPersonResponse(p *model.Person) *personResponse {
	if p == nil {
		return nil
	}
	return &personResponse{ID: p.ID, Name: p.Name, BirthYear: p.BirthYear, Height: p.Height}
}

func toPlanetResponse(p *model.Planet) *planetResponse {
	if p == nil {
		return nil
	}
	return &planetResponse{ID: p.ID, Name: p.Name, Population: p.Population}
}

func toVehicleResponse(v *model.Vehicle) *vehicleResponse {
	if v == nil {
		return nil
	}
	return &vehicleResponse{ID: v.ID, Name: v.Name, Crew: v.Crew, Passengers: v.Passengers}
}

// mapSlice はスライスの各要素を変換する。結果は常に非nilで、空の場合も [] として出力される。
func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

// ListPeople は登場人物一覧を返す。
// GET /people
func (h *CatalogHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.service.ListPeople(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(people, toPersonResponse))
}

// GetPerson は登場人物を1件返す。
// GET /people/{id}
func (h *CatalogHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	p, err := h.service.GetPerson(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPersonResponse(p))
}

// DeletePerson は登場人物を削除する。関連するお気に入りも削除される。
// DELETE /people/{id}
func (h *CatalogHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeletePerson, "登場人物 %d を削除しました。")
}

// ListPlanets は惑星一覧を返す。
// GET /planets
func (h *CatalogHandler) ListPlanets(w http.ResponseWriter, r *http.Request) {
	planets, err := h.service.ListPlanets(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(planets, toPlanetResponse))
}

// GetPlanet は惑星を1件返す。
// GET /planets/{id}
func (h *CatalogHandler) GetPlanet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	p, err := h.service.GetPlanet(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanetResponse(p))
}

// DeletePlanet は惑星を削除する。
// DELETE /planets/{id}
func (h *CatalogHandler) DeletePlanet(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeletePlanet, "惑星 %d を削除しました。")
}

// ListVehicles は乗り物一覧を返す。
// GET /vehicles
func (h *CatalogHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.ListVehicles(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(vehicles, toVehicleResponse))
}

// GetVehicle は乗り物を1件返す。
// GET /vehicles/{id}
func (h *CatalogHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	v, err := h.service.GetVehicle(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleResponse(v))
}

// DeleteVehicle は乗り物を削除する。
// DELETE /vehicles/{id}
func (h *CatalogHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeleteVehicle, "乗り物 %d を削除しました。")
}

func (h *CatalogHandler) delete(w http.ResponseWriter, r *http.Request, deleteFn func(context.Context, int64) error, format string) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := deleteFn(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf(format, id)})
}
