package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は名前とラベルが一致するメトリクスを返す。見つからない場合はnil。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != want {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordFavoriteAdded_CountsPerKind は種別ごとにお気に入り追加数が数えられることを検証する。
func TestRecordFavoriteAdded_CountsPerKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFavoriteAdded("planet")
	c.RecordFavoriteAdded("planet")
	c.RecordFavoriteAdded("person")

	m := findMetric(t, reg, "starfav_favorites_added_total", map[string]string{"kind": "planet"})
	if m == nil {
		t.Fatal("starfav_favorites_added_total{kind=planet} not found")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("favorites_added_total{kind=planet} = %v, want 2", got)
	}

	m = findMetric(t, reg, "starfav_favorites_added_total", map[string]string{"kind": "person"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("favorites_added_total{kind=person} = %v, want 1", m)
	}
}

// TestRecordFavoriteRemoved_IncrementsCounter はお気に入り削除数が増加することを検証する。
func TestRecordFavoriteRemoved_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFavoriteRemoved("vehicle")

	m := findMetric(t, reg, "starfav_favorites_removed_total", map[string]string{"kind": "vehicle"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("favorites_removed_total{kind=vehicle} = %v, want 1", m)
	}
}

// TestRecordHTTPRequest_RecordsStatusAndLatency はステータスコード別カウンタとレイテンシが記録されることを検証する。
func TestRecordHTTPRequest_RecordsStatusAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", 200, 30*time.Millisecond)
	c.RecordHTTPRequest("GET", 200, 10*time.Millisecond)
	c.RecordHTTPRequest("POST", 404, 5*time.Millisecond)

	m := findMetric(t, reg, "starfav_http_requests_total", map[string]string{"method": "GET", "status_code": "200"})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("http_requests_total{GET,200} = %v, want 2", m)
	}
	m = findMetric(t, reg, "starfav_http_requests_total", map[string]string{"method": "POST", "status_code": "404"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("http_requests_total{POST,404} = %v, want 1", m)
	}

	h := findMetric(t, reg, "starfav_http_request_duration_seconds", map[string]string{"method": "GET"})
	if h == nil {
		t.Fatal("starfav_http_request_duration_seconds{GET} not found")
	}
	if got := h.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
}

// TestRecordImport_CountsRecordsAndFailures はインポート関連のメトリクスを検証する。
func TestRecordImport_CountsRecordsAndFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordImportedRecords("people", 82)
	c.RecordImportedRecords("people", 3)
	c.RecordImportFailure("planets", "http_error")
	c.RecordImportLatency(12 * time.Second)

	m := findMetric(t, reg, "starfav_import_records_total", map[string]string{"kind": "people"})
	if m == nil || m.GetCounter().GetValue() != 85 {
		t.Errorf("import_records_total{people} = %v, want 85", m)
	}
	m = findMetric(t, reg, "starfav_import_fail_total", map[string]string{"kind": "planets", "reason": "http_error"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("import_fail_total{planets,http_error} = %v, want 1", m)
	}
	h := findMetric(t, reg, "starfav_import_latency_seconds", nil)
	if h == nil || h.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("import_latency_seconds = %v, want 1 sample", h)
	}
}

// TestNewCollector_DuplicateRegistrationPanics は同一レジストリへの二重登録がpanicすることを検証する。
func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}
