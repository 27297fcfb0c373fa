// Package favorite はユーザーごとのお気に入り台帳のドメインロジックを提供する。
//
// お気に入りは登場人物・惑星・乗り物のいずれか1件を指す。
// 同一対象の重複登録は許容し、削除時はIDが最小の1件だけを取り除く。
package favorite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/starfav/internal/model"
	"github.com/hitoshi/starfav/internal/repository"
)

// Recorder はお気に入りの増減を記録するインターフェース。
// metrics.Collector が満たす。
type Recorder interface {
	RecordFavoriteAdded(kind string)
	RecordFavoriteRemoved(kind string)
}

// Service はお気に入り台帳のサービス層。
type Service struct {
	userRepo     repository.UserRepository
	personRepo   repository.PersonRepository
	planetRepo   repository.PlanetRepository
	vehicleRepo  repository.VehicleRepository
	favoriteRepo repository.FavoriteRepository
	recorder     Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	personRepo repository.PersonRepository,
	planetRepo repository.PlanetRepository,
	vehicleRepo repository.VehicleRepository,
	favoriteRepo repository.FavoriteRepository,
	recorder Recorder,
) *Service {
	return &Service{
		userRepo:     userRepo,
		personRepo:   personRepo,
		planetRepo:   planetRepo,
		vehicleRepo:  vehicleRepo,
		favoriteRepo: favoriteRepo,
		recorder:     recorder,
	}
}

// List はユーザーのお気に入りを対象エンティティ付きでID昇順に返す。
// ユーザーが存在しない場合はUSER_NOT_FOUNDを返す。お気に入りが0件の場合は空スライスを返す。
func (s *Service) List(ctx context.Context, userID int64) ([]model.FavoriteDetail, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	details, err := s.favoriteRepo.ListDetailsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	if details == nil {
		details = []model.FavoriteDetail{}
	}
	return details, nil
}

// Add はユーザーのお気に入りに対象を1件追加し、作成したお気に入りを返す。
// ユーザーまたは対象が存在しない場合は対応するNotFoundエラーを返す。
func (s *Service) Add(ctx context.Context, userID int64, target model.Target) (*model.FavoriteDetail, error) {
	if target.IsZero() {
		return nil, model.NewUnknownTargetKindError("")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	detail := &model.FavoriteDetail{}
	if err := s.loadTarget(ctx, target, detail); err != nil {
		return nil, err
	}

	fav := &model.Favorite{UserID: userID, Target: target}
	if err := s.favoriteRepo.Create(ctx, fav); err != nil {
		return nil, fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	detail.Favorite = *fav

	if s.recorder != nil {
		s.recorder.RecordFavoriteAdded(string(target.Kind()))
	}
	slog.Info("お気に入りを追加しました",
		slog.Int64("user_id", userID),
		slog.Int64("favorite_id", fav.ID),
		slog.String("target", target.String()),
	)

	return detail, nil
}

// Remove はユーザーのお気に入りから対象に一致する最も古い1件を削除する。
// 一致するお気に入りがない場合はFAVORITE_NOT_FOUNDを返す。
func (s *Service) Remove(ctx context.Context, userID int64, target model.Target) error {
	if target.IsZero() {
		return model.NewUnknownTargetKindError("")
	}

	fav, err := s.favoriteRepo.FindFirstByUserAndTarget(ctx, userID, target)
	if err != nil {
		return fmt.Errorf("お気に入りの検索に失敗しました: %w", err)
	}
	if fav == nil {
		return model.NewFavoriteNotFoundError(userID, target)
	}

	if err := s.favoriteRepo.DeleteByID(ctx, fav.ID); err != nil {
		// 検索から削除までの間に他のリクエストが削除した場合
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewFavoriteNotFoundError(userID, target)
		}
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordFavoriteRemoved(string(target.Kind()))
	}
	slog.Info("お気に入りを削除しました",
		slog.Int64("user_id", userID),
		slog.Int64("favorite_id", fav.ID),
		slog.String("target", target.String()),
	)

	return nil
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(userID)
	}
	return nil
}

// loadTarget は対象エンティティを取得してdetailの対応フィールドに設定する。
func (s *Service) loadTarget(ctx context.Context, target model.Target, detail *model.FavoriteDetail) error {
	var (
		found bool
		err   error
	)
	switch target.Kind() {
	case model.TargetPerson:
		detail.Person, err = s.personRepo.FindByID(ctx, target.ID())
		found = detail.Person != nil
	case model.TargetPlanet:
		detail.Planet, err = s.planetRepo.FindByID(ctx, target.ID())
		found = detail.Planet != nil
	case model.TargetVehicle:
		detail.Vehicle, err = s.vehicleRepo.FindByID(ctx, target.ID())
		found = detail.Vehicle != nil
	default:
		return model.NewUnknownTargetKindError(string(target.Kind()))
	}
	if err != nil {
		return fmt.Errorf("お気に入り対象 %s の取得に失敗しました: %w", target, err)
	}
	if !found {
		return model.NewTargetNotFoundError(target)
	}
	return nil
}
