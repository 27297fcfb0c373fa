package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/starfav/internal/model"
)

// PostgresPersonRepo はPostgreSQLを使用した登場人物リポジトリ。
type PostgresPersonRepo struct {
	db DBTX
}

// NewPostgresPersonRepo はPostgresPersonRepoを生成する。
func NewPostgresPersonRepo(db DBTX) *PostgresPersonRepo {
	return &PostgresPersonRepo{db: db}
}

// FindByID は指定IDの登場人物を取得する。見つからない場合はnilを返す。
func (r *PostgresPersonRepo) FindByID(ctx context.Context, id int64) (*model.Person, error) {
	p := &model.Person{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, birth_year, height FROM people WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.BirthYear, &p.Height)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("登場人物の取得に失敗しました: %w", err)
	}
	return p, nil
}

// List は全登場人物をID昇順で返す。
func (r *PostgresPersonRepo) List(ctx context.Context) ([]*model.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, birth_year, height FROM people ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("登場人物一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	people := make([]*model.Person, 0)
	for rows.Next() {
		p := &model.Person{}
		if err := rows.Scan(&p.ID, &p.Name, &p.BirthYear, &p.Height); err != nil {
			return nil, fmt.Errorf("登場人物の読み取りに失敗しました: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("登場人物一覧の走査に失敗しました: %w", err)
	}
	return people, nil
}

// Upsert はIDをキーに登場人物を作成または更新する。
func (r *PostgresPersonRepo) Upsert(ctx context.Context, p *model.Person) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO people (id, name, birth_year, height)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   birth_year = EXCLUDED.birth_year,
		   height = EXCLUDED.height`,
		p.ID, p.Name, p.BirthYear, p.Height,
	)
	if err != nil {
		return fmt.Errorf("登場人物の保存に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの登場人物を削除する。
// 関連するfavoritesはCASCADE削除される。
func (r *PostgresPersonRepo) DeleteByID(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, "people", id)
}

// compile-time interface check
var _ PersonRepository = (*PostgresPersonRepo)(nil)
