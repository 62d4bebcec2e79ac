package domain

// RunStatus is the terminal status of one daily digest run.
type RunStatus string

const (
	RunCompleted           RunStatus = "COMPLETED"
	RunNoContent           RunStatus = "NO_CONTENT"
	RunSourceUnavailable   RunStatus = "SOURCE_UNAVAILABLE"
	RunSummarizationFailed RunStatus = "SUMMARIZATION_FAILED"
	RunStoreUnavailable    RunStatus = "STORE_UNAVAILABLE"
)

// DeliveryOutcome records one fan-out attempt to one subscriber.
type DeliveryOutcome struct {
	SubscriberID  string
	Succeeded     bool
	FailureReason string
}

// RunResult describes the outcome of one daily digest run. SummaryPersisted
// reports whether the summary record was written; deliveries can only have
// been attempted when it is true.
type RunResult struct {
	Status           RunStatus
	SummaryPersisted bool
	Deliveries       []DeliveryOutcome
}
