package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/starfav/internal/model"
)

// PostgresPlanetRepo はPostgreSQLを使用した惑星リポジトリ。
type PostgresPlanetRepo struct {
	db DBTX
}

// NewPostgresPlanetRepo はPostgresPlanetRepoを生成する。
func NewPostgresPlanetRepo(db DBTX) *PostgresPlanetRepo {
	return &PostgresPlanetRepo{db: db}
}

// FindByID は指定IDの惑星を取得する。見つからない場合はnilを返す。
func (r *PostgresPlanetRepo) FindByID(ctx context.Context, id int64) (*model.Planet, error) {
	p := &model.Planet{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, population FROM planets WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Population)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("惑星の取得に失敗しました: %w", err)
	}
	return p, nil
}

// List は全惑星をID昇順で返す。
func (r *PostgresPlanetRepo) List(ctx context.Context) ([]*model.Planet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, population FROM planets ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("惑星一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	planets := make([]*model.Planet, 0)
	for rows.Next() {
		p := &model.Planet{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Population); err != nil {
			return nil, fmt.Errorf("惑星の読み取りに失敗しました: %w", err)
		}
		planets = append(planets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("惑星一覧の走査に失敗しました: %w", err)
	}
	return planets, nil
}

// Upsert はIDをキーに惑星を作成または更新する。
func (r *PostgresPlanetRepo) Upsert(ctx context.Context, p *model.Planet) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO planets (id, name, population)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   population = EXCLUDED.population`,
		p.ID, p.Name, p.Population,
	)
	if err != nil {
		return fmt.Errorf("惑星の保存に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの惑星を削除する。
func (r *PostgresPlanetRepo) DeleteByID(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "planets", id)
}

// compile-time interface check
var _ PlanetRepository = (*PostgresPlanetRepo)(nil)
