package swapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/starfav/internal/model"
	"github.com/hitoshi/starfav/internal/repository"
)

// Source は参照データの取得元。テスト時にモックに差し替え可能。
type Source interface {
	FetchPeople(ctx context.Context) ([]PersonRecord, error)
	FetchPlanets(ctx context.Context) ([]PlanetRecord, error)
	FetchVehicles(ctx context.Context) ([]VehicleRecord, error)
}

// Recorder はインポート結果のメトリクス記録先。
type Recorder interface {
	RecordImportedRecords(kind string, count int)
	RecordImportFailure(kind string, reason string)
	RecordImportLatency(duration time.Duration)
}

// 失敗理由のラベル
const (
	failureFetch   = "fetch"
	failureInvalid = "invalid"
	failureStore   = "store"
)

// KindSummary は1種別分のインポート結果。
type KindSummary struct {
	Fetched  int
	Imported int
	Skipped  int
	Failed   int
}

// Summary はインポート1回分の結果。
type Summary struct {
	People   KindSummary
	Planets  KindSummary
	Vehicles KindSummary
}

// Importer は参照データをSourceから取得してDBへupsertする。
type Importer struct {
	source      Source
	personRepo  repository.PersonRepository
	planetRepo  repository.PlanetRepository
	vehicleRepo repository.VehicleRepository
	converter   *Converter
	recorder    Recorder
	logger      *slog.Logger
	interval    time.Duration
}

// NewImporter はImporterの新しいインスタンスを生成する。recorderはnilでもよい。
func NewImporter(
	source Source,
	personRepo repository.PersonRepository,
	planetRepo repository.PlanetRepository,
	vehicleRepo repository.VehicleRepository,
	recorder Recorder,
	logger *slog.Logger,
	interval time.Duration,
) *Importer {
	return &Importer{
		source:      source,
		personRepo:  personRepo,
		planetRepo:  planetRepo,
		vehicleRepo: vehicleRepo,
		converter:   NewConverter(),
		recorder:    recorder,
		logger:      logger,
		interval:    interval,
	}
}

// Start はインポートをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (im *Importer) Start(ctx context.Context) {
	ticker := time.NewTicker(im.interval)
	defer ticker.Stop()

	im.logger.Info("参照データの定期インポートを開始しました",
		slog.Duration("interval", im.interval),
	)

	// 起動直後に1回実行
	im.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			im.logger.Info("参照データの定期インポートを停止しました")
			return
		case <-ticker.C:
			im.runAndLog(ctx)
		}
	}
}

func (im *Importer) runAndLog(ctx context.Context) {
	if _, err := im.RunOnce(ctx); err != nil {
		im.logger.Error("参照データのインポートに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は全種別のインポートを1回実行する。
// ある種別の取得に失敗しても残りの種別は続行し、失敗はまとめて返す。
func (im *Importer) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	var summary Summary
	var errs []error

	var err error
	summary.People, err = importKind(ctx, im, string(model.TargetPerson),
		im.source.FetchPeople, im.converter.Person, im.personRepo.Upsert)
	errs = append(errs, err)

	if ctx.Err() == nil {
		summary.Planets, err = importKind(ctx, im, string(model.TargetPlanet),
			im.source.FetchPlanets, im.converter.Planet, im.planetRepo.Upsert)
		errs = append(errs, err)
	}

	if ctx.Err() == nil {
		summary.Vehicles, err = importKind(ctx, im, string(model.TargetVehicle),
			im.source.FetchVehicles, im.converter.Vehicle, im.vehicleRepo.Upsert)
		errs = append(errs, err)
	}

	duration := time.Since(start)
	if im.recorder != nil {
		im.recorder.RecordImportLatency(duration)
	}

	im.logger.Info("参照データのインポートが完了しました",
		slog.Int("people", summary.People.Imported),
		slog.Int("planets", summary.Planets.Imported),
		slog.Int("vehicles", summary.Vehicles.Imported),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	if ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}
	return summary, errors.Join(errs...)
}

// importKind は1種別分の取得・変換・保存を行う。
// 変換できないレコードはスキップし、保存に失敗したレコードは件数に含めて続行する。
func importKind[R any, M any](
	ctx context.Context,
	im *Importer,
	kind string,
	fetch func(context.Context) ([]R, error),
	convert func(R) (*M, error),
	store func(context.Context, *M) error,
) (KindSummary, error) {
	var s KindSummary

	records, err := fetch(ctx)
	if err != nil {
		im.recordFailure(kind, failureFetch)
		return s, fmt.Errorf("%s の取得に失敗しました: %w", kind, err)
	}
	s.Fetched = len(records)

	for _, rec := range records {
		entity, err := convert(rec)
		if err != nil {
			s.Skipped++
			im.recordFailure(kind, failureInvalid)
			im.logger.Warn("不正なレコードをスキップしました",
				slog.String("kind", kind),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := store(ctx, entity); err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			s.Failed++
			im.recordFailure(kind, failureStore)
			im.logger.Error("参照データの保存に失敗しました",
				slog.String("kind", kind),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.Imported++
	}

	if im.recorder != nil {
		im.recorder.RecordImportedRecords(kind, s.Imported)
	}
	if s.Failed > 0 {
		return s, fmt.Errorf("%s: %d 件の保存に失敗しました", kind, s.Failed)
	}
	return s, nil
}

func (im *Importer) recordFailure(kind, reason string) {
	if im.recorder != nil {
		im.recorder.RecordImportFailure(kind, reason)
	}
}
