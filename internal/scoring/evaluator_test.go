package scoring

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func syntheticCandidates(n int, seed int64) []Candidate {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			ID: fmt.Sprintf("stage-%04d", i),
			Values: map[string]float64{
				"cost":   float64(rng.Intn(20)),
				"carbon": rng.Float64() * 100,
				"water":  rng.Float64() * 50,
				"energy": float64(rng.Intn(5)),
			},
		}
	}
	return out
}

func lifecycleRun(workers int) RunConfig {
	return RunConfig{
		RunID: "test-run",
		Criteria: []CriterionSpec{
			{Name: "cost", Orientation: Minimize, Weight: 0.3},
			{Name: "carbon", Orientation: Minimize, Weight: 0.3},
			{Name: "water", Orientation: Minimize, Weight: 0.2},
			{Name: "energy", Orientation: Minimize, Weight: 0.2},
		},
		Method:  MinMax,
		Policy:  DefaultPolicy(),
		Workers: workers,
	}
}

func TestEvaluateScenarioTie(t *testing.T) {
	e, err := NewEvaluator(RunConfig{
		RunID:    "scenario",
		Criteria: costCarbon(),
		Policy:   DefaultPolicy(),
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	rs, err := e.Evaluate(context.Background(), []Candidate{
		cand("C", "cost", 7.5, "carbon", 7.5),
		cand("B", "cost", 5.0, "carbon", 10.0),
		cand("A", "cost", 10.0, "carbon", 5.0),
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if diff := cmp.Diff([]string{"A", "B", "C"}, rs.IDs()); diff != "" {
		t.Errorf("rank order mismatch (-want +got):\n%s", diff)
	}
	for _, r := range rs.Results {
		if r.Score != 0.5 {
			t.Errorf("%s: expected score 0.5, got %v", r.ID, r.Score)
		}
		if r.Status != StatusFail {
			t.Errorf("%s: expected fail at default threshold, got %s", r.ID, r.Status)
		}
	}
	if rs.Method != MinMax {
		t.Errorf("expected minmax, got %s", rs.Method)
	}
	if a, _ := rs.Lookup("A"); a.Values["cost"] != 0 || a.Values["carbon"] != 1 {
		t.Errorf("unexpected normalized values for A: %v", a.Values)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	candidates := syntheticCandidates(501, 7)

	seq, err := NewEvaluator(lifecycleRun(1), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	want, err := seq.Evaluate(context.Background(), candidates)
	if err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			par, err := NewEvaluator(lifecycleRun(workers), discardLogger())
			if err != nil {
				t.Fatal(err)
			}
			got, err := par.Evaluate(context.Background(), candidates)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("parallel result differs (-sequential +parallel):\n%s", diff)
			}
		})
	}
}

func TestParallelSmallChunks(t *testing.T) {
	candidates := syntheticCandidates(97, 3)

	cfg := lifecycleRun(1)
	seq, _ := NewEvaluator(cfg, discardLogger())
	want, err := seq.Evaluate(context.Background(), candidates)
	if err != nil {
		t.Fatal(err)
	}

	cfg.Workers = 4
	cfg.ChunkSize = 5
	par, _ := NewEvaluator(cfg, discardLogger())
	got, err := par.Evaluate(context.Background(), candidates)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("chunked result differs:\n%s", diff)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	candidates := syntheticCandidates(64, 11)
	e, _ := NewEvaluator(lifecycleRun(4), discardLogger())

	first, err := e.Evaluate(context.Background(), candidates)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Evaluate(context.Background(), candidates)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated run differs:\n%s", diff)
	}
}

func TestEvaluateSingleCandidate(t *testing.T) {
	only := []Candidate{cand("only", "cost", 3.0, "carbon", 4.0)}

	t.Run("fail policy", func(t *testing.T) {
		e, _ := NewEvaluator(RunConfig{Criteria: costCarbon(), Policy: DefaultPolicy()}, discardLogger())
		rs, err := e.Evaluate(context.Background(), only)
		var ide *InsufficientDataError
		if !errors.As(err, &ide) {
			t.Fatalf("expected InsufficientDataError, got %v", err)
		}
		if rs != nil {
			t.Error("expected no result set on failure")
		}
	})

	t.Run("raw policy", func(t *testing.T) {
		e, _ := NewEvaluator(RunConfig{Criteria: costCarbon(), Policy: DefaultPolicy(), SingleCandidate: RawOnSingle}, discardLogger())
		rs, err := e.Evaluate(context.Background(), only)
		if err != nil {
			t.Fatal(err)
		}
		if rs.Method != Raw {
			t.Errorf("expected raw method, got %s", rs.Method)
		}
		if rs.Results[0].Score != 3.5 {
			t.Errorf("expected raw weighted score 3.5, got %v", rs.Results[0].Score)
		}
	})
}

func TestEvaluateEmpty(t *testing.T) {
	e, _ := NewEvaluator(lifecycleRun(2), discardLogger())
	_, err := e.Evaluate(context.Background(), nil)
	var eie *EmptyInputError
	if !errors.As(err, &eie) {
		t.Fatalf("expected EmptyInputError, got %v", err)
	}
}

func TestEvaluateMismatchFailsWholeRun(t *testing.T) {
	candidates := syntheticCandidates(40, 5)
	delete(candidates[33].Values, "water")

	e, _ := NewEvaluator(lifecycleRun(8), discardLogger())
	rs, err := e.Evaluate(context.Background(), candidates)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if rs != nil {
		t.Error("expected no partial result set")
	}
	if se.Problems[0].Candidate != "stage-0033" || se.Problems[0].Column != "water" {
		t.Errorf("unexpected problem: %+v", se.Problems[0])
	}
}

func TestScoreParallelWorkerFailure(t *testing.T) {
	good := syntheticCandidates(20, 1)
	e, _ := NewEvaluator(lifecycleRun(4), discardLogger())
	stats, err := e.normalizer.Fit(good)
	if err != nil {
		t.Fatal(err)
	}

	bad := syntheticCandidates(20, 1)
	delete(bad[17].Values, "energy")

	scored, err := e.scoreParallel(context.Background(), stats, bad)
	var wfe *WorkerFailureError
	if !errors.As(err, &wfe) {
		t.Fatalf("expected WorkerFailureError, got %v", err)
	}
	if scored != nil {
		t.Error("expected no partial results")
	}
	if wfe.Candidate != "stage-0017" || wfe.Chunk != 3 {
		t.Errorf("unexpected failure location: chunk %d candidate %s", wfe.Chunk, wfe.Candidate)
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Error("expected the cause to unwrap to SchemaError")
	}
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, _ := NewEvaluator(lifecycleRun(2), discardLogger())
	if _, err := e.Evaluate(ctx, syntheticCandidates(10, 2)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"bad method", func(rc *RunConfig) { rc.Method = "log" }},
		{"negative workers", func(rc *RunConfig) { rc.Workers = -1 }},
		{"negative chunk", func(rc *RunConfig) { rc.ChunkSize = -3 }},
		{"no fallback label", func(rc *RunConfig) { rc.Policy = ClassificationPolicy{} }},
		{"bad single policy", func(rc *RunConfig) { rc.SingleCandidate = "guess" }},
		{"bad weights", func(rc *RunConfig) { rc.Criteria[0].Weight = 0.9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := lifecycleRun(1)
			tt.mutate(&rc)
			if _, err := NewEvaluator(rc, discardLogger()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, workers, size int
		want             []Chunk
	}{
		{0, 4, 0, nil},
		{10, 3, 0, []Chunk{{0, 4}, {4, 8}, {8, 10}}},
		{5, 8, 0, []Chunk{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}}},
		{7, 2, 3, []Chunk{{0, 3}, {3, 6}, {6, 7}}},
		{4, 0, 0, []Chunk{{0, 4}}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Partition(tt.n, tt.workers, tt.size)); diff != "" {
			t.Errorf("Partition(%d,%d,%d) mismatch:\n%s", tt.n, tt.workers, tt.size, diff)
		}
	}
}
