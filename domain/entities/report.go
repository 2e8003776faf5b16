package entities

import (
	"time"
)

// LoadedAddon describes one addon accepted by a load pass.
type LoadedAddon struct {
	Path    string `json:"path,omitempty"`
	Name    string `json:"name"`
	AddonID uint32 `json:"addon_id"`
	Stopped bool   `json:"stopped,omitempty"`
}

// LoadFailure describes one candidate that could not be loaded.
type LoadFailure struct {
	Error *ErrorDetail `json:"error"`
	Path  string       `json:"path"`
}

// LoadReport summarizes a batch load. A batch never aborts on a single
// failure, so Loaded and Failed together cover every candidate.
type LoadReport struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Loaded    []LoadedAddon `json:"loaded"`
	Failed    []LoadFailure `json:"failed,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Finish stamps the end time and duration of the report.
func (r *LoadReport) Finish(end time.Time) *LoadReport {
	r.EndTime = end
	r.Duration = end.Sub(r.StartTime)
	return r
}

// DispatchReport summarizes one event dispatch over all loaded addons.
type DispatchReport struct {
	Hook string `json:"hook"`
	// Applied counts addons whose edit was applied.
	Applied int `json:"applied"`
	// Unchanged counts addons that returned no edit.
	Unchanged int `json:"unchanged"`
	// Stopped counts addons skipped because an earlier call stopped them.
	Stopped int `json:"stopped"`
	// Failed counts addons that trapped, timed out or returned a rejected edit.
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}
