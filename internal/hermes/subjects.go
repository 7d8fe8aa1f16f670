package hermes

const (
	// SubjectRunRequest carries RunRequestEvent payloads for event-driven runs.
	SubjectRunRequest = "verdant.run.request"

	StreamName   = "VERDANT_EVENTS"
	StreamMaxAge = "168h" // 7 days
)

func SubjectRunCompleted(runID string) string { return "verdant.run." + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return "verdant.run." + runID + ".failed" }
func SubjectRunAdvised(runID string) string   { return "verdant.run." + runID + ".advised" }
