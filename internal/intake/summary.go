package intake

import "fmt"

// RunSummary tallies what one dedup pass decided. A fresh summary is
// built per call and returned to the caller; nothing accumulates across
// requests.
type RunSummary struct {
	UploadID    string   `json:"upload_id"`
	Duplicates  int      `json:"duplicates"`
	NewVersions int      `json:"new_versions"`
	NewProjects int      `json:"new_projects"`
	Asks        int      `json:"asks"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	Notes       []string `json:"notes,omitempty"`
}

func (r *RunSummary) record(name string, outcome DedupOutcome) {
	switch outcome {
	case OutcomeDuplicate:
		r.Duplicates++
	case OutcomeNewVersion:
		r.NewVersions++
	case OutcomeNewProject:
		r.NewProjects++
	case OutcomeAsk:
		r.Asks++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
	r.Notes = append(r.Notes, fmt.Sprintf("%s: %s", name, outcome))
}
