package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Verdant/internal/advisor"
	"github.com/MikeSquared-Agency/Verdant/internal/config"
	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/hermes"
	"github.com/MikeSquared-Agency/Verdant/internal/metrics"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

// MockHermes implements hermes.Client for testing
type MockHermes struct {
	mock.Mock
}

func (m *MockHermes) Publish(subject string, data any) error {
	args := m.Called(subject, data)
	return args.Error(0)
}

func (m *MockHermes) Subscribe(ctx context.Context, subject string, handler func(string, []byte)) error {
	args := m.Called(ctx, subject, handler)
	return args.Error(0)
}

func (m *MockHermes) Close() {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const packagingCSV = `Material,Cost_per_unit,Recyclability,Carbon_Footprint,Durability
Glass,1.2,90,3.1,7
PET,0.4,55,2.2,5
Cardboard,0.2,80,1.0,3
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Run.Workers = 1
	cfg.Run.Method = string(scoring.MinMax)
	cfg.Advisor.Grid = advisor.Grid{Trees: []int{10}, MaxDepth: []int{0}, MinSamplesSplit: []int{2}}
	return cfg
}

func table(t *testing.T, src string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV(strings.NewReader(src), "test.csv")
	require.NoError(t, err)
	return tbl
}

func circularityCSV(n int) string {
	var b strings.Builder
	b.WriteString("material,recyclability,reuse_potential,end_of_life_recovery,carbon_footprint\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "m%02d,%d,%d,%d,%d\n", i, 10+i*7, 50+(i*3)%11, 20+(i*5)%13, 5+(i*2)%7)
	}
	return b.String()
}

func TestRunPublishesCompleted(t *testing.T) {
	h := &MockHermes{}
	h.On("Publish", hermes.SubjectRunCompleted("run-1"), mock.MatchedBy(func(ev hermes.RunCompletedEvent) bool {
		return ev.Candidates == 3 && ev.Profile == "packaging" && len(ev.Top) == 3
	})).Return(nil)

	m := metrics.New()
	r := NewRunner(testConfig(t), h, m, discardLogger())

	res, err := r.Run(context.Background(), Request{
		Profile:   "packaging",
		Table:     table(t, packagingCSV),
		Overrides: config.Overrides{RunID: "run-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "Material", res.IDColumn)
	assert.Equal(t, []string{"Cardboard", "Glass", "PET"}, res.Results.IDs())
	assert.Nil(t, res.Advisory)
	h.AssertExpectations(t)
}

func TestRunSchemaFailurePublishesFailed(t *testing.T) {
	h := &MockHermes{}
	h.On("Publish", hermes.SubjectRunFailed("run-2"), mock.MatchedBy(func(ev hermes.RunFailedEvent) bool {
		return ev.Kind == KindSchema && strings.Contains(ev.Error, "Durability")
	})).Return(nil)

	r := NewRunner(testConfig(t), h, metrics.New(), discardLogger())
	_, err := r.Run(context.Background(), Request{
		Profile:   "packaging",
		Table:     table(t, "Material,Cost_per_unit,Recyclability,Carbon_Footprint\nGlass,1,2,3\nPET,2,3,4\n"),
		Overrides: config.Overrides{RunID: "run-2"},
	})

	var se *scoring.SchemaError
	require.ErrorAs(t, err, &se)
	h.AssertExpectations(t)
}

func TestRunWithoutEvents(t *testing.T) {
	r := NewRunner(testConfig(t), nil, nil, discardLogger())

	_, err := r.Run(context.Background(), Request{Profile: "unknown", Table: table(t, packagingCSV)})
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, ErrorKind(err))

	res, err := r.Run(context.Background(), Request{Profile: "packaging", Table: table(t, packagingCSV)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
}

func TestRunWeightOverride(t *testing.T) {
	r := NewRunner(testConfig(t), nil, nil, discardLogger())

	_, err := r.Run(context.Background(), Request{
		Profile:   "packaging",
		Table:     table(t, packagingCSV),
		Overrides: config.Overrides{Weights: map[string]float64{"Cost_per_unit": 0.5, "Recyclability": 0.6, "Carbon_Footprint": 0, "Durability": 0}},
	})
	var wce *scoring.WeightConfigurationError
	require.ErrorAs(t, err, &wce)
	assert.Equal(t, KindWeightConfiguration, ErrorKind(err))
}

func TestRunAdvisorSkippedForSmallProfileRun(t *testing.T) {
	r := NewRunner(testConfig(t), nil, nil, discardLogger())

	res, err := r.Run(context.Background(), Request{Profile: "circularity", Table: table(t, circularityCSV(4))})
	require.NoError(t, err)
	assert.Nil(t, res.Advisory)
	assert.Contains(t, res.AdvisorSkipped, "insufficient training data")

	_, err = r.Run(context.Background(), Request{Profile: "circularity", Table: table(t, circularityCSV(4)), Advise: true})
	var ite *advisor.InsufficientTrainingDataError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, KindInsufficientTrainingData, ErrorKind(err))
}

func TestRunWithAdvisor(t *testing.T) {
	h := &MockHermes{}
	h.On("Publish", mock.MatchedBy(func(s string) bool { return strings.HasSuffix(s, ".completed") }), mock.Anything).Return(nil)
	h.On("Publish", hermes.SubjectRunAdvised("run-3"), mock.MatchedBy(func(ev hermes.RunAdvisedEvent) bool {
		return ev.Lever != "" && ev.Params != ""
	})).Return(nil)

	r := NewRunner(testConfig(t), h, metrics.New(), discardLogger())
	res, err := r.Run(context.Background(), Request{
		Profile:   "circularity",
		Table:     table(t, circularityCSV(12)),
		Overrides: config.Overrides{RunID: "run-3"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Advisory)
	assert.Len(t, res.Advisory.Suggestions, 12)
	assert.Len(t, res.Advisory.Importances, 4)
	h.AssertExpectations(t)
}

func TestRunCompliance(t *testing.T) {
	r := NewRunner(testConfig(t), nil, metrics.New(), discardLogger())

	data := table(t, `Entity,Requirement,Status,Date
PlantA,Emissions,25,2024-01-01
PlantA,Recycling,60,2024-01-01
PlantB,Emissions,10,2024-01-01
PlantB,Recycling,30,2024-01-01
`)
	regs := table(t, "Requirement,Description,Threshold\nEmissions,CO2,20\nRecycling,Waste,50\n")

	res, err := r.RunCompliance(context.Background(), data, regs, config.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Report.NonCompliant)
	assert.Equal(t, []string{"PlantA", "PlantB"}, res.Results.IDs())
	assert.Equal(t, 1, res.Results.Summary.Failing)
	assert.Equal(t, []string{"Emissions", "Recycling"}, res.Results.Summary.Failures[0].Failed)
}

func TestRunComplianceSingleEntity(t *testing.T) {
	r := NewRunner(testConfig(t), nil, metrics.New(), discardLogger())

	data := table(t, `Entity,Requirement,Status,Date
StoreA,emissions,25,2024-01-01
StoreA,waste,40,2024-01-01
`)
	regs := table(t, `Requirement,Description,Threshold
emissions,CO2,20
waste,Waste,50
`)

	res, err := r.RunCompliance(context.Background(), data, regs, config.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Compliant)
	assert.Equal(t, 1, res.Report.NonCompliant)
	require.NotNil(t, res.Results)
	assert.Equal(t, scoring.Raw, res.Results.Method)
	require.Len(t, res.Results.Results, 1)
	assert.Equal(t, []string{"waste"}, res.Results.Results[0].FailedRequirements)
}

func TestRunComplianceMissingFinding(t *testing.T) {
	r := NewRunner(testConfig(t), nil, metrics.New(), discardLogger())
	regs := table(t, `Requirement,Description,Threshold
emissions,CO2,20
waste,Waste,50
`)

	res, err := r.RunCompliance(context.Background(), table(t, `Entity,Requirement,Status,Date
StoreA,emissions,25,2024-01-01
StoreA,waste,60,2024-01-01
StoreB,emissions,30,2024-01-01
`), regs, config.Overrides{})
	require.NoError(t, err)
	require.Len(t, res.Report.Entities, 2)
	assert.Equal(t, []string{"waste"}, res.Report.Entities[1].Missing)
	require.NotNil(t, res.Results)
	assert.Equal(t, []string{"StoreA"}, res.Results.IDs())

	res, err = r.RunCompliance(context.Background(), table(t, `Entity,Requirement,Status,Date
StoreB,emissions,30,2024-01-01
`), regs, config.Overrides{})
	require.NoError(t, err)
	assert.Nil(t, res.Results)
	assert.NotEmpty(t, res.RankingSkipped)
	assert.Equal(t, []string{"waste"}, res.Report.Entities[0].Failed)
}

func TestRunKPI(t *testing.T) {
	r := NewRunner(testConfig(t), nil, metrics.New(), discardLogger())

	report, err := r.RunKPI(table(t, "KPI,Target,Actual,Date\nEnergy,100,120,2024-01-31\nEnergy,100,50,2024-02-29\n"))
	require.NoError(t, err)
	require.Len(t, report.Summary, 1)
	assert.Equal(t, 85.0, report.Summary[0].AveragePerformance)

	_, err = r.RunKPI(table(t, "KPI,Target\nEnergy,1\n"))
	assert.Equal(t, KindSchema, ErrorKind(err))
}

func TestHandleRequest(t *testing.T) {
	h := &MockHermes{}
	h.On("Publish", hermes.SubjectRunCompleted("evt-1"), mock.Anything).Return(nil)

	r := NewRunner(testConfig(t), h, nil, discardLogger())

	r.HandleRequest(context.Background(), []byte("{not json"))
	h.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	tbl := table(t, packagingCSV)
	payload, err := json.Marshal(hermes.RunRequestEvent{
		RunID:   "evt-1",
		Profile: "packaging",
		Columns: tbl.Columns,
		Rows:    tbl.Rows,
	})
	require.NoError(t, err)

	r.HandleRequest(context.Background(), payload)
	h.AssertExpectations(t)
}

func TestListenSubscribes(t *testing.T) {
	h := &MockHermes{}
	h.On("Subscribe", mock.Anything, hermes.SubjectRunRequest, mock.Anything).Return(nil)

	r := NewRunner(testConfig(t), h, nil, discardLogger())
	require.NoError(t, r.Listen(context.Background()))
	h.AssertExpectations(t)

	assert.NoError(t, NewRunner(testConfig(t), nil, nil, discardLogger()).Listen(context.Background()))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&scoring.SchemaError{}, KindSchema},
		{fmt.Errorf("wrapped: %w", &scoring.EmptyInputError{}), KindEmptyInput},
		{&scoring.InsufficientDataError{Have: 1, Need: 2}, KindInsufficientData},
		{&scoring.WorkerFailureError{Chunk: 1, Err: &scoring.SchemaError{}}, KindWorkerFailure},
		{&advisor.InsufficientTrainingDataError{}, KindInsufficientTrainingData},
		{context.Canceled, KindCanceled},
		{errors.New("unknown method"), KindConfiguration},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), tt.err.Error())
	}
}
