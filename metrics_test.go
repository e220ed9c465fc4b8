package schemaguard

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsRecordValidation(t *testing.T) {
	m := NewMetrics()

	m.RecordValidation(10*time.Millisecond, true)
	m.RecordValidation(30*time.Millisecond, false)
	m.RecordValidation(20*time.Millisecond, true)

	if m.ValidationsTotal() != 3 {
		t.Errorf("ValidationsTotal = %d", m.ValidationsTotal())
	}
	if m.ValidationsValid() != 2 {
		t.Errorf("ValidationsValid = %d", m.ValidationsValid())
	}
	if rate := m.ValidationRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("ValidationRate = %f", rate)
	}
	if m.MinValidationTime() != 10*time.Millisecond {
		t.Errorf("MinValidationTime = %v", m.MinValidationTime())
	}
	if m.MaxValidationTime() != 30*time.Millisecond {
		t.Errorf("MaxValidationTime = %v", m.MaxValidationTime())
	}
	if m.AverageValidationTime() != 20*time.Millisecond {
		t.Errorf("AverageValidationTime = %v", m.AverageValidationTime())
	}
}

func TestMetricsEmpty(t *testing.T) {
	m := NewMetrics()

	if m.ValidationRate() != 0 || m.CacheHitRate() != 0 {
		t.Error("rates on empty metrics should be zero")
	}
	if m.MinValidationTime() != 0 || m.AverageValidationTime() != 0 {
		t.Error("times on empty metrics should be zero")
	}
}

func TestMetricsCacheCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	if m.CacheHits() != 3 || m.CacheMisses() != 1 {
		t.Errorf("hits/misses = %d/%d", m.CacheHits(), m.CacheMisses())
	}
	if rate := m.CacheHitRate(); rate != 0.75 {
		t.Errorf("CacheHitRate = %f", rate)
	}
}

func TestMetricsIssueCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordIssue(SeverityError)
	m.RecordIssue(SeverityFatal)
	m.RecordIssue(SeverityWarning)
	m.RecordIssue(SeverityInformation)

	if m.ErrorsTotal() != 2 {
		t.Errorf("ErrorsTotal = %d", m.ErrorsTotal())
	}
	if m.WarningsTotal() != 1 {
		t.Errorf("WarningsTotal = %d", m.WarningsTotal())
	}
}

func TestMetricsOperations(t *testing.T) {
	m := NewMetrics()

	m.Record("text", 5*time.Millisecond, false)
	m.Record("text", 15*time.Millisecond, true)
	m.Record("json", 2*time.Millisecond, false)

	stats, ok := m.OperationStats("text")
	if !ok {
		t.Fatal("text operation missing")
	}
	if stats.Count != 2 || stats.Errors != 1 {
		t.Errorf("text stats = %+v", stats)
	}
	if stats.AvgTime != 10*time.Millisecond {
		t.Errorf("AvgTime = %v", stats.AvgTime)
	}

	if _, ok := m.OperationStats("missing"); ok {
		t.Error("unknown operation should report ok=false")
	}

	all := m.AllOperationStats()
	if len(all) != 2 {
		t.Errorf("AllOperationStats len = %d", len(all))
	}
}

func TestMetricsSnapshotAndReset(t *testing.T) {
	m := NewMetrics()
	m.RecordValidation(time.Millisecond, true)
	m.RecordCacheHit()
	m.RecordIssue(SeverityError)
	m.Record("op", time.Millisecond, false)

	snap := m.Snapshot()
	if snap.ValidationsTotal != 1 || snap.CacheHits != 1 || snap.ErrorsTotal != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Operations) != 1 {
		t.Errorf("snapshot operations = %v", snap.Operations)
	}

	m.Reset()
	if m.ValidationsTotal() != 0 || m.CacheHits() != 0 || m.ErrorsTotal() != 0 {
		t.Error("reset did not clear counters")
	}
	if m.MinValidationTime() != 0 {
		t.Error("reset did not clear min time")
	}
	if len(m.AllOperationStats()) != 0 {
		t.Error("reset did not clear operations")
	}
}

func TestMetricsConcurrent(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordValidation(time.Microsecond, true)
				m.Record("op", time.Microsecond, false)
			}
		}()
	}
	wg.Wait()

	if m.ValidationsTotal() != 2000 {
		t.Errorf("ValidationsTotal = %d; want 2000", m.ValidationsTotal())
	}
	stats, _ := m.OperationStats("op")
	if stats.Count != 2000 {
		t.Errorf("op count = %d; want 2000", stats.Count)
	}
}
