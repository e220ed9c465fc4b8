package worker

import (
	"testing"
	"time"
)

func TestPoolDrainAlignment(t *testing.T) {
	p := NewPool(stubValidate(nil), 4)

	for i := 0; i < 20; i++ {
		schema := "ok"
		if i%5 == 0 {
			schema = "fail"
		}
		if !p.Submit(Item{ID: "item", Schema: schema, Value: i}) {
			t.Fatalf("Submit(%d) rejected", i)
		}
	}

	br := p.Drain()

	if br.Summary.Total != 20 {
		t.Fatalf("Total = %d; want 20", br.Summary.Total)
	}
	if br.Summary.Passed != 16 || br.Summary.Failed != 4 {
		t.Errorf("summary = %+v", br.Summary)
	}
	for i, r := range br.Results {
		if r == nil {
			t.Fatalf("slot %d missing", i)
		}
		if r.Data != i {
			t.Errorf("slot %d holds %v; Drain must align by submission index", i, r.Data)
		}
		if wantFail := i%5 == 0; r.HasErrors() != wantFail {
			t.Errorf("slot %d HasErrors = %v; want %v", i, r.HasErrors(), wantFail)
		}
	}
}

func TestPoolResultsChannel(t *testing.T) {
	p := NewPool(stubValidate(nil), 2)

	p.Submit(Item{ID: "a", Schema: "ok", Value: "x"})
	p.Submit(Item{ID: "b", Schema: "fail", Value: "y"})

	seen := map[string]*ItemResult{}
	for len(seen) < 2 {
		select {
		case r := <-p.Results():
			seen[r.ID] = r
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for results")
		}
	}
	p.Close()

	if seen["a"].Result.HasErrors() {
		t.Error("item a should pass")
	}
	if !seen["b"].Result.HasErrors() {
		t.Error("item b should fail")
	}
	if seen["a"].Index == seen["b"].Index {
		t.Error("items must carry distinct indices")
	}
}

func TestPoolRejectsAfterClose(t *testing.T) {
	p := NewPool(stubValidate(nil), 1)
	p.Close()

	if p.Submit(Item{Schema: "ok"}) {
		t.Error("Submit after Close must return false")
	}
	if p.TrySubmit(Item{Schema: "ok"}) {
		t.Error("TrySubmit after Close must return false")
	}

	// A second Close is a no-op.
	p.Close()
}

func TestPoolStats(t *testing.T) {
	p := NewPool(stubValidate(nil), 3)

	for i := 0; i < 6; i++ {
		p.Submit(Item{Schema: "ok", Value: i})
	}
	p.Drain()

	stats := p.Stats()
	if stats.Workers != 3 {
		t.Errorf("Workers = %d", stats.Workers)
	}
	if stats.Submitted != 6 || stats.Completed != 6 {
		t.Errorf("Submitted/Completed = %d/%d; want 6/6", stats.Submitted, stats.Completed)
	}
}

func TestPoolDefaultWorkerCount(t *testing.T) {
	p := NewPool(stubValidate(nil), 0)
	defer p.Close()

	if p.Stats().Workers < 1 {
		t.Error("worker count must default to at least 1")
	}
}

func TestPoolDrainTwice(t *testing.T) {
	p := NewPool(stubValidate(nil), 1)
	p.Submit(Item{Schema: "ok"})
	first := p.Drain()
	second := p.Drain()

	if first.Summary.Total != 1 {
		t.Errorf("first drain Total = %d", first.Summary.Total)
	}
	if second.Summary.Total != 0 {
		t.Errorf("second drain must be empty, got Total = %d", second.Summary.Total)
	}
}
