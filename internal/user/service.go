// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/starfav/internal/model"
	"github.com/hitoshi/starfav/internal/repository"
)

// CreateInput はユーザー作成時の入力値。
type CreateInput struct {
	Email    string `validate:"required,email,max=120"`
	Password string `validate:"required,min=8,max=72"`
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	validate *validator.Validate
	// hashCost はbcryptのコスト。テストでは下げる。
	hashCost int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		validate: validator.New(),
		hashCost: bcrypt.DefaultCost,
	}
}

// List は全ユーザーを返す。0件の場合は空スライスを返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// Get は指定IDのユーザーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return user, nil
}

// Create はパスワードをbcryptでハッシュ化してユーザーを作成する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return nil, model.NewInvalidInputError(describeValidationError(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateEmailError(in.Email)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.Int64("user_id", user.ID),
	)
	return user, nil
}

// Delete はユーザーを削除する。
// ユーザーのお気に入りはCASCADE削除される。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError(id)
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザーを削除しました",
		slog.Int64("user_id", id),
	)
	return nil
}

// describeValidationError は検証エラーを利用者向けのメッセージに変換する。
func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s は必須です", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s の形式が正しくありません", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s は %s 文字以上で指定してください", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s は %s 文字以下で指定してください", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s が不正です (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "、")
}
