package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/starfav/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
// model.Target と3つのnullable列（people_id, planet_id, vehicules_id）の変換はこの層に閉じる。
type PostgresFavoriteRepo struct {
	db DBTX
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db DBTX) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// targetColumn は対象種別に対応するfavoritesの列名を返す。
func targetColumn(kind model.TargetKind) (string, error) {
	switch kind {
	case model.TargetPerson:
		return "people_id", nil
	case model.TargetPlanet:
		return "planet_id", nil
	case model.TargetVehicle:
		return "vehicules_id", nil
	default:
		return "", fmt.Errorf("unknown target kind: %q", kind)
	}
}

// ListDetailsByUserID はユーザーのお気に入りを対象エンティティと結合してID昇順で返す。
func (r *PostgresFavoriteRepo) ListDetailsByUserID(ctx context.Context, userID int64) ([]model.FavoriteDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.id, f.user_id, f.people_id, f.planet_id, f.vehicules_id, f.created_at,
		        p.name, p.birth_year, p.height,
		        pl.name, pl.population,
		        v.name, v.crew, v.passengers
		 FROM favorites f
		 LEFT JOIN people p ON p.id = f.people_id
		 LEFT JOIN planets pl ON pl.id = f.planet_id
		 LEFT JOIN vehicules v ON v.id = f.vehicules_id
		 WHERE f.user_id = $1
		 ORDER BY f.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	details := make([]model.FavoriteDetail, 0)
	for rows.Next() {
		var (
			d                         model.FavoriteDetail
			personID, planetID, vehID *int64
			personName, birthYear     sql.NullString
			height                    sql.NullInt64
			planetName                sql.NullString
			population                sql.NullInt64
			vehicleName               sql.NullString
			crew, passengers          sql.NullInt64
		)
		if err := rows.Scan(
			&d.ID, &d.UserID, &personID, &planetID, &vehID, &d.CreatedAt,
			&personName, &birthYear, &height,
			&planetName, &population,
			&vehicleName, &crew, &passengers,
		); err != nil {
			return nil, fmt.Errorf("お気に入りの読み取りに失敗しました: %w", err)
		}

		d.Target, err = model.TargetFromColumns(personID, planetID, vehID)
		if err != nil {
			return nil, fmt.Errorf("お気に入り %d の対象が不正です: %w", d.ID, err)
		}

		switch d.Target.Kind() {
		case model.TargetPerson:
			d.Person = &model.Person{
				ID:        d.Target.ID(),
				Name:      personName.String,
				BirthYear: birthYear.String,
				Height:    int(height.Int64),
			}
		case model.TargetPlanet:
			d.Planet = &model.Planet{
				ID:         d.Target.ID(),
				Name:       planetName.String,
				Population: population.Int64,
			}
		case model.TargetVehicle:
			d.Vehicle = &model.Vehicle{
				ID:         d.Target.ID(),
				Name:       vehicleName.String,
				Crew:       int(crew.Int64),
				Passengers: int(passengers.Int64),
			}
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}
	return details, nil
}

// Create はお気に入りを作成し、採番されたIDと作成日時をfavに設定する。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, fav *model.Favorite) error {
	if fav.Target.IsZero() {
		return errors.New("お気に入りの対象が指定されていません")
	}
	personID, planetID, vehicleID := fav.Target.Columns()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO favorites (user_id, people_id, planet_id, vehicules_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		fav.UserID, personID, planetID, vehicleID,
	).Scan(&fav.ID, &fav.CreatedAt)
	if err != nil {
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", err)
	}
	return nil
}

// FindFirstByUserAndTarget はユーザーと対象に一致するお気に入りのうちIDが最小のものを返す。
// 見つからない場合はnilを返す。
func (r *PostgresFavoriteRepo) FindFirstByUserAndTarget(ctx context.Context, userID int64, target model.Target) (*model.Favorite, error) {
	column, err := targetColumn(target.Kind())
	if err != nil {
		return nil, err
	}

	var (
		fav                       model.Favorite
		personID, planetID, vehID *int64
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, people_id, planet_id, vehicules_id, created_at
		 FROM favorites
		 WHERE user_id = $1 AND `+column+` = $2
		 ORDER BY id
		 LIMIT 1`,
		userID, target.ID(),
	).Scan(&fav.ID, &fav.UserID, &personID, &planetID, &vehID, &fav.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの検索に失敗しました: %w", err)
	}

	fav.Target, err = model.TargetFromColumns(personID, planetID, vehID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り %d の対象が不正です: %w", fav.ID, err)
	}
	return &fav, nil
}

// DeleteByID は指定IDのお気に入りを削除する。存在しない場合はErrNotFoundを返す。
func (r *PostgresFavoriteRepo) DeleteByID(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "favorites", id)
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
