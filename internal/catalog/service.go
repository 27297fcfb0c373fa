// Package catalog は参照データ（登場人物・惑星・乗り物）の参照と削除を提供する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/starfav/internal/model"
	"github.com/hitoshi/starfav/internal/repository"
)

// Service は参照データのサービス層。
// 削除時、対象を参照するお気に入りはCASCADE削除される。
type Service struct {
	personRepo  repository.PersonRepository
	planetRepo  repository.PlanetRepository
	vehicleRepo repository.VehicleRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	personRepo repository.PersonRepository,
	planetRepo repository.PlanetRepository,
	vehicleRepo repository.VehicleRepository,
) *Service {
	return &Service{
		personRepo:  personRepo,
		planetRepo:  planetRepo,
		vehicleRepo: vehicleRepo,
	}
}

// ListPeople は全登場人物を返す。0件の場合は空スライスを返す。
func (s *Service) ListPeople(ctx context.Context) ([]*model.Person, error) {
	people, err := s.personRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("登場人物一覧の取得に失敗しました: %w", err)
	}
	return nonNil(people), nil
}

// GetPerson は指定IDの登場人物を返す。
func (s *Service) GetPerson(ctx context.Context, id int64) (*model.Person, error) {
	p, err := s.personRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("登場人物の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPersonNotFoundError(id)
	}
	return p, nil
}

// DeletePerson は指定IDの登場人物を削除する。
func (s *Service) DeletePerson(ctx context.Context, id int64) error {
	return s.delete(ctx, model.PersonTarget(id), s.personRepo.DeleteByID)
}

// ListPlanets は全惑星を返す。
func (s *Service) ListPlanets(ctx context.Context) ([]*model.Planet, error) {
	planets, err := s.planetRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("惑星一覧の取得に失敗しました: %w", err)
	}
	return nonNil(planets), nil
}

// GetPlanet は指定IDの惑星を返す。
func (s *Service) GetPlanet(ctx context.Context, id int64) (*model.Planet, error) {
	p, err := s.planetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("惑星の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPlanetNotFoundError(id)
	}
	return p, nil
}

// DeletePlanet は指定IDの惑星を削除する。
func (s *Service) DeletePlanet(ctx context.Context, id int64) error {
	return s.delete(ctx, model.PlanetTarget(id), s.planetRepo.DeleteByID)
}

// ListVehicles は全乗り物を返す。
func (s *Service) ListVehicles(ctx context.Context) ([]*model.Vehicle, error) {
	vehicles, err := s.vehicleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("乗り物一覧の取得に失敗しました: %w", err)
	}
	return nonNil(vehicles), nil
}

// GetVehicle は指定IDの乗り物を返す。
func (s *Service) GetVehicle(ctx context.Context, id int64) (*model.Vehicle, error) {
	v, err := s.vehicleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("乗り物の取得に失敗しました: %w", err)
	}
	if v == nil {
		return nil, model.NewVehicleNotFoundError(id)
	}
	return v, nil
}

// DeleteVehicle は指定IDの乗り物を削除する。
func (s *Service) DeleteVehicle(ctx context.Context, id int64) error {
	return s.delete(ctx, model.VehicleTarget(id), s.vehicleRepo.DeleteByID)
}

func (s *Service) delete(ctx context.Context, target model.Target, deleteFn func(context.Context, int64) error) error {
	if err := deleteFn(ctx, target.ID()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewTargetNotFoundError(target)
		}
		return fmt.Errorf("%s の削除に失敗しました: %w", target, err)
	}
	slog.Info("参照データを削除しました", slog.String("target", target.String()))
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
