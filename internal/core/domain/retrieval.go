package domain

type RetrievedPassage struct {
	Passage
	Score float64 `json:"score"`
}

type PromptMode string

const (
	PromptModeGrounded PromptMode = "grounded"
	PromptModeOpen     PromptMode = "open"
	PromptModeGuidance PromptMode = "guidance"
)

// GuidanceMessage is returned instead of an LLM answer while no page is indexed.
const GuidanceMessage = "Please enter a webpage URL first."

type Answer struct {
	Text    string             `json:"text"`
	Mode    PromptMode         `json:"mode"`
	Sources []RetrievedPassage `json:"sources"`
	State   SessionState       `json:"state"`
}

type IndexResult struct {
	URL      string       `json:"url"`
	Title    string       `json:"title,omitempty"`
	Passages int          `json:"passages"`
	Ignored  bool         `json:"ignored"`
	State    SessionState `json:"state"`
}
