package swapi

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/starfav/internal/model"
)

// --- モック定義 ---

type mockSource struct {
	people      []PersonRecord
	planets     []PlanetRecord
	vehicles    []VehicleRecord
	peopleErr   error
	planetsErr  error
	vehiclesErr error
}

func (m *mockSource) FetchPeople(ctx context.Context) ([]PersonRecord, error) {
	return m.people, m.peopleErr
}

func (m *mockSource) FetchPlanets(ctx context.Context) ([]PlanetRecord, error) {
	return m.planets, m.planetsErr
}

func (m *mockSource) FetchVehicles(ctx context.Context) ([]VehicleRecord, error) {
	return m.vehicles, m.vehiclesErr
}

// memRepo はupsertされたエンティティをIDごとに保持するリポジトリモック。
type memRepo[T any] struct {
	mu        sync.Mutex
	items     map[int64]*T
	idOf      func(*T) int64
	upsertErr func(*T) error
}

func newMemRepo[T any](idOf func(*T) int64) *memRepo[T] {
	return &memRepo[T]{items: make(map[int64]*T), idOf: idOf}
}

func (m *memRepo[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id], nil
}

func (m *memRepo[T]) List(ctx context.Context) ([]*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*T, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	return out, nil
}

func (m *memRepo[T]) Upsert(ctx context.Context, v *T) error {
	if m.upsertErr != nil {
		if err := m.upsertErr(v); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[m.idOf(v)] = v
	return nil
}

func (m *memRepo[T]) DeleteByID(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memRepo[T]) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type mockRecorder struct {
	mu       sync.Mutex
	imported map[string]int
	failures map[string]int
	runs     int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{imported: make(map[string]int), failures: make(map[string]int)}
}

func (m *mockRecorder) RecordImportedRecords(kind string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imported[kind] += count
}

func (m *mockRecorder) RecordImportFailure(kind string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[kind+"/"+reason]++
}

func (m *mockRecorder) RecordImportLatency(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

type testRepos struct {
	people   *memRepo[model.Person]
	planets  *memRepo[model.Planet]
	vehicles *memRepo[model.Vehicle]
}

func newTestRepos() testRepos {
	return testRepos{
		people: newMemRepo(func(p *model.Person) int64 {
			return p.ID
		}),
		planets: newMemRepo(func(p *model.Planet) int64 {
			return p.ID
		}),
		vehicles: newMemRepo(func(v *model.Vehicle) int64 {
			return v.ID
		}),
	}
}

func newTestImporter(src Source, repos testRepos, rec Recorder) *Importer {
	var buf bytes.Buffer
	return NewImporter(src, repos.people, repos.planets, repos.vehicles, rec, newTestLogger(&buf), time.Hour)
}

func sampleSource() *mockSource {
	return &mockSource{
		people: []PersonRecord{
			{Name: "Luke Skywalker", BirthYear: "19BBY", Height: "172", URL: "https://swapi.dev/api/people/1/"},
			{Name: "Yoda", BirthYear: "896BBY", Height: "66", URL: "https://swapi.dev/api/people/20/"},
		},
		planets: []PlanetRecord{
			{Name: "Dagobah", Population: "unknown", URL: "https://swapi.dev/api/planets/5/"},
		},
		vehicles: []VehicleRecord{
			{Name: "Sand Crawler", Crew: "46", Passengers: "30", URL: "https://swapi.dev/api/vehicles/4/"},
		},
	}
}

// --- Importer のテスト ---

func TestImporter_RunOnce(t *testing.T) {
	repos := newTestRepos()
	rec := newMockRecorder()
	im := newTestImporter(sampleSource(), repos, rec)

	summary, err := im.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce がエラーを返した: %v", err)
	}

	if summary.People.Imported != 2 || summary.Planets.Imported != 1 || summary.Vehicles.Imported != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if repos.people.count() != 2 || repos.planets.count() != 1 || repos.vehicles.count() != 1 {
		t.Errorf("保存件数が一致しない: people=%d planets=%d vehicles=%d",
			repos.people.count(), repos.planets.count(), repos.vehicles.count())
	}

	yoda, _ := repos.people.FindByID(context.Background(), 20)
	if yoda == nil || yoda.Height != 66 {
		t.Errorf("Yoda = %+v", yoda)
	}

	if rec.imported["person"] != 2 || rec.imported["planet"] != 1 || rec.imported["vehicle"] != 1 {
		t.Errorf("imported metrics = %v", rec.imported)
	}
	if rec.runs != 1 {
		t.Errorf("latency runs = %d, want 1", rec.runs)
	}
}

func TestImporter_RunOnce_Idempotent(t *testing.T) {
	repos := newTestRepos()
	im := newTestImporter(sampleSource(), repos, nil)

	for i := 0; i < 2; i++ {
		if _, err := im.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce #%d がエラーを返した: %v", i+1, err)
		}
	}
	if repos.people.count() != 2 {
		t.Errorf("people = %d, want 2", repos.people.count())
	}
}

func TestImporter_RunOnce_SkipsInvalidRecords(t *testing.T) {
	src := sampleSource()
	src.people = append(src.people, PersonRecord{Name: "", URL: "https://swapi.dev/api/people/3/"})
	repos := newTestRepos()
	rec := newMockRecorder()
	im := newTestImporter(src, repos, rec)

	summary, err := im.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("不正レコードのスキップはエラーにしない: %v", err)
	}
	if summary.People.Fetched != 3 || summary.People.Imported != 2 || summary.People.Skipped != 1 {
		t.Errorf("People summary = %+v", summary.People)
	}
	if rec.failures["person/invalid"] != 1 {
		t.Errorf("failures = %v", rec.failures)
	}
}

func TestImporter_RunOnce_FetchErrorContinues(t *testing.T) {
	src := sampleSource()
	src.planetsErr = errors.New("connection refused")
	repos := newTestRepos()
	rec := newMockRecorder()
	im := newTestImporter(src, repos, rec)

	summary, err := im.RunOnce(context.Background())
	if err == nil {
		t.Fatal("取得失敗はエラーとして返されるべき")
	}
	if summary.People.Imported != 2 || summary.Vehicles.Imported != 1 {
		t.Errorf("他の種別は続行されるべき: %+v", summary)
	}
	if rec.failures["planet/fetch"] != 1 {
		t.Errorf("failures = %v", rec.failures)
	}
}

func TestImporter_RunOnce_StoreError(t *testing.T) {
	repos := newTestRepos()
	repos.vehicles.upsertErr = func(v *model.Vehicle) error {
		return errors.New("db down")
	}
	rec := newMockRecorder()
	im := newTestImporter(sampleSource(), repos, rec)

	summary, err := im.RunOnce(context.Background())
	if err == nil {
		t.Fatal("保存失敗はエラーとして返されるべき")
	}
	if summary.Vehicles.Failed != 1 || summary.Vehicles.Imported != 0 {
		t.Errorf("Vehicles summary = %+v", summary.Vehicles)
	}
	if rec.failures["vehicle/store"] != 1 {
		t.Errorf("failures = %v", rec.failures)
	}
}

func TestImporter_RunOnce_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repos := newTestRepos()
	im := newTestImporter(sampleSource(), repos, nil)

	_, err := im.RunOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("context.Canceled が返されるべき, got %v", err)
	}
	if repos.planets.count() != 0 || repos.vehicles.count() != 0 {
		t.Error("キャンセル後の種別は実行されないべき")
	}
}

func TestImporter_Start_StopsOnCancel(t *testing.T) {
	repos := newTestRepos()
	im := newTestImporter(sampleSource(), repos, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		im.Start(ctx)
		close(done)
	}()

	// 起動直後の1回が終わるのを待つ
	deadline := time.Now().Add(2 * time.Second)
	for repos.vehicles.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start がキャンセル後に終了しなかった")
	}
	if repos.people.count() != 2 {
		t.Errorf("people = %d, want 2", repos.people.count())
	}
}
