package domain

// TestFailure represents a failed scenario step
type TestFailure struct {
	Scenario   string   `json:"scenario"`
	Step       string   `json:"step"`
	Kind       string   `json:"kind"`
	Message    string   `json:"message"`
	DialogText string   `json:"dialog_text,omitempty"`
	URL        string   `json:"url,omitempty"`
	Dialogs    []string `json:"dialogs,omitempty"`
	Artifacts  []string `json:"artifacts,omitempty"`
	Resolved   bool     `json:"resolved,omitempty"` // Track if failure is marked as resolved
}
