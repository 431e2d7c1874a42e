package statusapi

const (
	// ListVerificationsEndpoint lists every registered verification for a
	// phase, with its current status sentinel.
	ListVerificationsEndpoint = "/verifications"

	// RunAllEndpoint starts a run over a dataset and phase.
	RunAllEndpoint = "/run"

	// RunURLParam names the run id path parameter on GetRunEndpoint.
	RunURLParam = "runId"
	// GetRunEndpoint retrieves a run's current (or final) snapshot.
	GetRunEndpoint = "/run/{" + RunURLParam + "}"
)
