package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/starfav/internal/model"
)

func TestReferenceRepos_ImplementInterfaces(t *testing.T) {
	var _ PersonRepository = (*PostgresPersonRepo)(nil)
	var _ PlanetRepository = (*PostgresPlanetRepo)(nil)
	var _ VehicleRepository = (*PostgresVehicleRepo)(nil)
}

func TestPostgresPersonRepo_UpsertUpdatesExistingRow(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresPersonRepo(db)
	ctx := context.Background()

	if err := repo.Upsert(ctx, &model.Person{ID: 3, Name: "R2-D2", BirthYear: "33BBY", Height: 96}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, &model.Person{ID: 3, Name: "R2-D2", BirthYear: "33BBY", Height: 97}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	people, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(people) != 1 || people[0].Height != 97 {
		t.Errorf("Upsertは既存行を更新すべき: %+v", people)
	}
}

func TestPostgresPlanetRepo_FindAndDelete(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresPlanetRepo(db)
	ctx := context.Background()

	if err := repo.Upsert(ctx, &model.Planet{ID: 1, Name: "Tatooine", Population: 200000}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	p, err := repo.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if p == nil || p.Population != 200000 {
		t.Errorf("FindByID = %+v", p)
	}

	missing, err := repo.FindByID(ctx, 999)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if missing != nil {
		t.Errorf("存在しない惑星が取得できました: %+v", missing)
	}

	if err := repo.DeleteByID(ctx, 1); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if err := repo.DeleteByID(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("存在しない惑星の削除はErrNotFoundを返すべき: %v", err)
	}
}

func TestPostgresVehicleRepo_ListOrderedByID(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresVehicleRepo(db)
	ctx := context.Background()

	for _, v := range []*model.Vehicle{
		{ID: 14, Name: "Snowspeeder", Crew: 2},
		{ID: 4, Name: "Sand Crawler", Crew: 46, Passengers: 30},
	} {
		if err := repo.Upsert(ctx, v); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	vehicles, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(vehicles) != 2 || vehicles[0].ID != 4 || vehicles[1].ID != 14 {
		t.Errorf("ID昇順で返すべき: %+v", vehicles)
	}
}
