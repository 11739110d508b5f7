package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f fakeCounter) CountByCompetition(context.Context) (map[string]int64, error) {
	return f.counts, f.err
}

func TestStoreCollector(t *testing.T) {
	c := newStoreCollector(fakeCounter{counts: map[string]int64{"spring": 2, "": 1}}, nil)
	if n := testutil.CollectAndCount(c); n != 2 {
		t.Fatalf("expected 2 series, got %d", n)
	}
	expected := `
# HELP repozip_server_submissions_stored Submissions currently stored, by competition.
# TYPE repozip_server_submissions_stored gauge
repozip_server_submissions_stored{competition="default"} 1
repozip_server_submissions_stored{competition="spring"} 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}

	failing := newStoreCollector(fakeCounter{err: errors.New("down")}, nil)
	if n := testutil.CollectAndCount(failing); n != 0 {
		t.Fatalf("expected no series on error, got %d", n)
	}
}

func TestObserveStage(t *testing.T) {
	before := testutil.CollectAndCount(StageDurationSeconds)
	ObserveStage("test_stage", time.Now(), nil)
	ObserveStage("test_stage", time.Now(), errors.New("x"))
	if after := testutil.CollectAndCount(StageDurationSeconds); after != before+2 {
		t.Fatalf("expected two new series, got %d -> %d", before, after)
	}
}

func TestWriteTextfile(t *testing.T) {
	SubmissionsTotal.WithLabelValues("submitted").Inc()
	path := filepath.Join(t.TempDir(), "repozip.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `repozip_submissions_total{outcome="submitted"}`) {
		t.Fatalf("expected submissions counter in textfile")
	}
}
