package pipeline

import (
	"context"
	"errors"

	"github.com/MikeSquared-Agency/Verdant/internal/advisor"
	"github.com/MikeSquared-Agency/Verdant/internal/scoring"
)

// Error kinds reported in failed events and HTTP error bodies.
const (
	KindSchema                   = "schema"
	KindEmptyInput               = "empty_input"
	KindWeightConfiguration      = "weight_configuration"
	KindInsufficientData         = "insufficient_data"
	KindInsufficientTrainingData = "insufficient_training_data"
	KindWorkerFailure            = "worker_failure"
	KindCanceled                 = "canceled"
	KindConfiguration            = "configuration"
)

// ErrorKind classifies a run error. Errors outside the known taxonomy are
// configuration errors: bad profile, method or policy.
func ErrorKind(err error) string {
	var (
		schema   *scoring.SchemaError
		empty    *scoring.EmptyInputError
		weights  *scoring.WeightConfigurationError
		data     *scoring.InsufficientDataError
		training *advisor.InsufficientTrainingDataError
		worker   *scoring.WorkerFailureError
	)
	switch {
	case errors.As(err, &worker):
		return KindWorkerFailure
	case errors.As(err, &schema):
		return KindSchema
	case errors.As(err, &empty):
		return KindEmptyInput
	case errors.As(err, &weights):
		return KindWeightConfiguration
	case errors.As(err, &data):
		return KindInsufficientData
	case errors.As(err, &training):
		return KindInsufficientTrainingData
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindConfiguration
	}
}
