// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: not_found, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodePersonNotFound    = "PERSON_NOT_FOUND"
	ErrCodePlanetNotFound    = "PLANET_NOT_FOUND"
	ErrCodeVehicleNotFound   = "VEHICLE_NOT_FOUND"
	ErrCodeFavoriteNotFound  = "FAVORITE_NOT_FOUND"
	ErrCodeUnknownTargetKind = "UNKNOWN_TARGET_KIND"
	ErrCodeRouteNotFound     = "ROUTE_NOT_FOUND"
	ErrCodeDuplicateEmail    = "DUPLICATE_EMAIL"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// エラーカテゴリ
const (
	CategoryNotFound   = "not_found"
	CategoryValidation = "validation"
	CategorySystem     = "system"
)

// IsNotFound はerrが存在しないリソースを示すAPIErrorかどうかを返す。
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Category == CategoryNotFound
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID int64) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %d", userID),
		Category: CategoryNotFound,
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewPersonNotFoundError は登場人物が見つからない場合のエラーを生成する。
func NewPersonNotFoundError(personID int64) *APIError {
	return &APIError{
		Code:     ErrCodePersonNotFound,
		Message:  fmt.Sprintf("登場人物が見つかりません: %d", personID),
		Category: CategoryNotFound,
		Action:   "登場人物IDを確認してください。",
	}
}

// NewPlanetNotFoundError は惑星が見つからない場合のエラーを生成する。
func NewPlanetNotFoundError(planetID int64) *APIError {
	return &APIError{
		Code:     ErrCodePlanetNotFound,
		Message:  fmt.Sprintf("惑星が見つかりません: %d", planetID),
		Category: CategoryNotFound,
		Action:   "惑星IDを確認してください。",
	}
}

// NewVehicleNotFoundError は乗り物が見つからない場合のエラーを生成する。
func NewVehicleNotFoundError(vehicleID int64) *APIError {
	return &APIError{
		Code:     ErrCodeVehicleNotFound,
		Message:  fmt.Sprintf("乗り物が見つかりません: %d", vehicleID),
		Category: CategoryNotFound,
		Action:   "乗り物IDを確認してください。",
	}
}

// NewTargetNotFoundError はお気に入り対象の種別に応じた未検出エラーを生成する。
func NewTargetNotFoundError(target Target) *APIError {
	switch target.Kind() {
	case TargetPerson:
		return NewPersonNotFoundError(target.ID())
	case TargetPlanet:
		return NewPlanetNotFoundError(target.ID())
	case TargetVehicle:
		return NewVehicleNotFoundError(target.ID())
	default:
		return NewUnknownTargetKindError(string(target.Kind()))
	}
}

// NewFavoriteNotFoundError はユーザーのお気に入りに対象が含まれていない場合のエラーを生成する。
func NewFavoriteNotFoundError(userID int64, target Target) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteNotFound,
		Message:  fmt.Sprintf("ユーザー %d のお気に入りに %s は登録されていません。", userID, target),
		Category: CategoryNotFound,
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewUnknownTargetKindError は未知のお気に入り対象種別が指定された場合のエラーを生成する。
func NewUnknownTargetKindError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownTargetKind,
		Message:  fmt.Sprintf("未知のお気に入り対象種別です: %s", kind),
		Category: CategoryNotFound,
		Action:   "種別には people、planet、vehicle のいずれかを指定してください。",
	}
}

// NewRouteNotFoundError は存在しないエンドポイントへのリクエストに対するエラーを生成する。
func NewRouteNotFoundError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeRouteNotFound,
		Message:  fmt.Sprintf("エンドポイントが見つかりません: %s", path),
		Category: CategoryNotFound,
		Action:   "GET / でエンドポイント一覧を確認してください。",
	}
}

// NewDuplicateEmailError は登録済みのメールアドレスでユーザーを作成しようとした場合のエラーを生成する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("メールアドレスは既に登録されています: %s", email),
		Category: CategoryValidation,
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewInvalidInputError は入力値の検証に失敗した場合のエラーを生成する。
func NewInvalidInputError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  message,
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewRateLimitedError はレート制限を超過した場合のエラーを生成する。
func NewRateLimitedError(retryAfterSec int) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: CategorySystem,
		Action:   fmt.Sprintf("%d秒待ってから再度お試しください。", retryAfterSec),
	}
}

// NewInternalError は予期しない障害に対する利用者向けのエラーを生成する。
// 原因の詳細は含めず、ログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}
