package domain

// SleepRecord is one normalized day of band sleep data. Records are
// constructed once by the retriever and passed by value downstream;
// nothing mutates them after construction.
//
// JSON field names match the export column names so the same struct can
// be serialized into the AI prompt payload without a mapping layer.
type SleepRecord struct {
	// Date is the vendor-provided day identifier, passed through verbatim.
	Date string `json:"date"`
	// DeepSleepMinutes and ShallowSleepMinutes arrive pre-converted to
	// minutes from the vendor payload (dp/lt fields).
	DeepSleepMinutes    int `json:"deepSleepTime"`
	ShallowSleepMinutes int `json:"shallowSleepTime"`
	// WakeMinutes is time spent awake during the night.
	WakeMinutes int `json:"wakeTime"`
	// SleepStart and SleepStop are civil timestamps in the pipeline's
	// fixed timezone. Empty when the vendor reports a zero epoch.
	SleepStart string `json:"start"`
	SleepStop  string `json:"stop"`
	// REMMinutes is always derived from stage segments, never read
	// directly from the payload.
	REMMinutes int `json:"REMTime"`
	// NapMinutes defaults to 0 when the payload has no nap field.
	NapMinutes int `json:"naps"`
}
