package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/starfav/internal/model"
)

// PostgresVehicleRepo はPostgreSQLを使用した乗り物リポジトリ。
// テーブル名は既存スキーマに合わせて vehicules とする。
type PostgresVehicleRepo struct {
	db DBTX
}

// NewPostgresVehicleRepo はPostgresVehicleRepoを生成する。
func NewPostgresVehicleRepo(db DBTX) *PostgresVehicleRepo {
	return &PostgresVehicleRepo{db: db}
}

// FindByID は指定IDの乗り物を取得する。見つからない場合はnilを返す。
func (r *PostgresVehicleRepo) FindByID(ctx context.Context, id int64) (*model.Vehicle, error) {
	v := &model.Vehicle{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, crew, passengers FROM vehicules WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Name, &v.Crew, &v.Passengers)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("乗り物の取得に失敗しました: %w", err)
	}
	return v, nil
}

// List は全乗り物をID昇順で返す。
func (r *PostgresVehicleRepo) List(ctx context.Context) ([]*model.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, crew, passengers FROM vehicules ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("乗り物一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	vehicles := make([]*model.Vehicle, 0)
	for rows.Next() {
		v := &model.Vehicle{}
		if err := rows.Scan(&v.ID, &v.Name, &v.Crew, &v.Passengers); err != nil {
			return nil, fmt.Errorf("乗り物の読み取りに失敗しました: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("乗り物一覧の走査に失敗しました: %w", err)
	}
	return vehicles, nil
}

// Upsert はIDをキーに乗り物を作成または更新する。
func (r *PostgresVehicleRepo) Upsert(ctx context.Context, v *model.Vehicle) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicules (id, name, crew, passengers)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   crew = EXCLUDED.crew,
		   passengers = EXCLUDED.passengers`,
		v.ID, v.Name, v.Crew, v.Passengers,
	)
	if err != nil {
		return fmt.Errorf("乗り物の保存に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの乗り物を削除する。
func (r *PostgresVehicleRepo) DeleteByID(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "vehicules", id)
}

// compile-time interface check
var _ VehicleRepository = (*PostgresVehicleRepo)(nil)
