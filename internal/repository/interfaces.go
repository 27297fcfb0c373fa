// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/starfav/internal/model"
)

// ErrNotFound は更新・削除対象の行が存在しなかった場合に返される。
// 検索系メソッドは見つからない場合にエラーではなくnilを返す。
var ErrNotFound = errors.New("record not found")

// ErrDuplicate は一意制約違反の場合に返される。
var ErrDuplicate = errors.New("duplicate record")

// DBTX はリポジトリが必要とするSQL実行インターフェース。
// *sql.DB と *sql.Tx の両方が満たす。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーをID昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
	// メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するfavoritesはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// PersonRepository は登場人物データの永続化インターフェース。
type PersonRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Person, error)
	List(ctx context.Context) ([]*model.Person, error)
	// Upsert はIDをキーに登場人物を作成または更新する。
	Upsert(ctx context.Context, person *model.Person) error
	DeleteByID(ctx context.Context, id int64) error
}

// PlanetRepository は惑星データの永続化インターフェース。
type PlanetRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Planet, error)
	List(ctx context.Context) ([]*model.Planet, error)
	Upsert(ctx context.Context, planet *model.Planet) error
	DeleteByID(ctx context.Context, id int64) error
}

// VehicleRepository は乗り物データの永続化インターフェース。
type VehicleRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Vehicle, error)
	List(ctx context.Context) ([]*model.Vehicle, error)
	Upsert(ctx context.Context, vehicle *model.Vehicle) error
	DeleteByID(ctx context.Context, id int64) error
}

// FavoriteRepository はお気に入りデータの永続化インターフェース。
type FavoriteRepository interface {
	// ListDetailsByUserID はユーザーのお気に入りを対象エンティティと結合してID昇順で返す。
	// 0件の場合は空スライスを返す。
	ListDetailsByUserID(ctx context.Context, userID int64) ([]model.FavoriteDetail, error)

	// Create はお気に入りを作成し、採番されたIDと作成日時をfavに設定する。
	// 同一の(ユーザー, 対象)が既に存在しても新しい行を作成する。
	Create(ctx context.Context, fav *model.Favorite) error

	// FindFirstByUserAndTarget はユーザーと対象に一致するお気に入りのうちIDが最小のものを返す。
	// 見つからない場合はnilを返す。
	FindFirstByUserAndTarget(ctx context.Context, userID int64, target model.Target) (*model.Favorite, error)

	// DeleteByID は指定IDのお気に入りを削除する。存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id int64) error
}
