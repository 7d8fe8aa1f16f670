package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// SingleCandidatePolicy decides what happens when a run is too small to
// normalize.
type SingleCandidatePolicy string

const (
	// FailOnSingle surfaces InsufficientDataError. The default.
	FailOnSingle SingleCandidatePolicy = "fail"
	// RawOnSingle scores raw values unchanged.
	RawOnSingle SingleCandidatePolicy = "raw"
)

// RunConfig is everything one evaluation run needs. Nothing outlives it.
type RunConfig struct {
	RunID           string                `json:"run_id"`
	Criteria        []CriterionSpec       `json:"criteria"`
	Method          NormalizationMethod   `json:"method"`
	Policy          ClassificationPolicy  `json:"policy"`
	Requirements    []Requirement         `json:"requirements,omitempty"`
	Workers         int                   `json:"workers"`
	ChunkSize       int                   `json:"chunk_size,omitempty"`
	SingleCandidate SingleCandidatePolicy `json:"single_candidate,omitempty"`
	ParetoLimit     int                   `json:"pareto_limit,omitempty"`
}

// Validate checks the run configuration once, before any candidate is touched.
func (rc RunConfig) Validate() error {
	if err := ValidateCriteria(rc.Criteria); err != nil {
		return err
	}
	if rc.Method != "" && !rc.Method.Valid() {
		return fmt.Errorf("unknown normalization method %q", rc.Method)
	}
	if err := rc.Policy.Validate(); err != nil {
		return err
	}
	if err := ValidateRequirements(rc.Requirements, rc.Criteria); err != nil {
		return err
	}
	if rc.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", rc.Workers)
	}
	if rc.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be >= 0, got %d", rc.ChunkSize)
	}
	switch rc.SingleCandidate {
	case "", FailOnSingle, RawOnSingle:
	default:
		return fmt.Errorf("unknown single-candidate policy %q", rc.SingleCandidate)
	}
	return nil
}

// Evaluator runs Normalizer → Scorer → Ranker for one run, sequentially or
// across a worker pool.
type Evaluator struct {
	cfg        RunConfig
	normalizer *Normalizer
	scorer     *Scorer
	ranker     *Ranker
	logger     *slog.Logger
}

// NewEvaluator validates cfg and builds the run's components.
func NewEvaluator(cfg RunConfig, logger *slog.Logger) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Method == "" {
		cfg.Method = MinMax
	}
	paretoLimit := cfg.ParetoLimit
	if paretoLimit == 0 {
		paretoLimit = DefaultParetoLimit
	}
	return &Evaluator{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.Criteria, cfg.Method),
		scorer:     NewScorer(cfg.Criteria, logger),
		ranker:     NewRanker(cfg.Criteria, cfg.Policy, cfg.Requirements).WithParetoLimit(paretoLimit),
		logger:     logger,
	}, nil
}

// Config returns the run configuration.
func (e *Evaluator) Config() RunConfig { return e.cfg }

// Evaluate scores and ranks all candidates. Failure is all-or-nothing: on
// any error no result set is returned.
func (e *Evaluator) Evaluate(ctx context.Context, candidates []Candidate) (*RankedResultSet, error) {
	if len(candidates) == 0 {
		return nil, &EmptyInputError{}
	}

	// Statistics are global and computed before any partitioning.
	stats, err := e.normalizer.Fit(candidates)
	if err != nil {
		var insufficient *InsufficientDataError
		if !errors.As(err, &insufficient) || e.cfg.SingleCandidate != RawOnSingle {
			return nil, err
		}
		e.logger.Warn("too few candidates to normalize, scoring raw values",
			"run_id", e.cfg.RunID, "candidates", len(candidates))
		stats = Passthrough(e.cfg.Criteria)
	}

	var scored []ScoredCandidate
	if e.cfg.Workers <= 1 {
		scored, err = e.scoreSequential(ctx, stats, candidates)
	} else {
		scored, err = e.scoreParallel(ctx, stats, candidates)
	}
	if err != nil {
		return nil, err
	}

	results, summary := e.ranker.Rank(scored)

	e.logger.Info("run evaluated",
		"run_id", e.cfg.RunID,
		"method", stats.Method(),
		"candidates", len(results),
		"mean_score", summary.MeanScore,
		"passing", summary.Passing,
		"failing", summary.Failing,
	)

	return &RankedResultSet{
		RunID:    e.cfg.RunID,
		Method:   stats.Method(),
		Criteria: e.cfg.Criteria,
		Results:  results,
		Summary:  summary,
	}, nil
}

func (e *Evaluator) scoreSequential(ctx context.Context, stats *Statistics, candidates []Candidate) ([]ScoredCandidate, error) {
	scored := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nc, err := stats.Apply(c)
		if err != nil {
			return nil, err
		}
		scored[i] = e.scorer.ScoreCandidate(nc)
	}
	return scored, nil
}

// scoreParallel partitions candidates into contiguous chunks and scores them
// on a bounded worker pool. Each worker writes only its own slots.
func (e *Evaluator) scoreParallel(ctx context.Context, stats *Statistics, candidates []Candidate) ([]ScoredCandidate, error) {
	chunks := Partition(len(candidates), e.cfg.Workers, e.cfg.ChunkSize)
	scored := make([]ScoredCandidate, len(candidates))

	e.logger.Debug("parallel evaluation", "run_id", e.cfg.RunID, "workers", e.cfg.Workers, "chunks", len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for idx, ch := range chunks {
		idx, ch := idx, ch
		g.Go(func() error {
			for i := ch.Start; i < ch.End; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				nc, err := stats.Apply(candidates[i])
				if err != nil {
					return &WorkerFailureError{Chunk: idx, Candidate: candidates[i].ID, Err: err}
				}
				scored[i] = e.scorer.ScoreCandidate(nc)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("parallel evaluation failed", "run_id", e.cfg.RunID, "error", err)
		return nil, err
	}
	return scored, nil
}

// Chunk is a half-open index range [Start, End).
type Chunk struct {
	Start int
	End   int
}

// Partition splits n items into contiguous chunks. A chunkSize of 0 gives
// one chunk per worker.
func Partition(n, workers, chunkSize int) []Chunk {
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if chunkSize <= 0 {
		chunkSize = (n + workers - 1) / workers
	}
	chunks := make([]Chunk, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		chunks = append(chunks, Chunk{Start: start, End: end})
	}
	return chunks
}
