package entity

// Screenshot is a captured page image, already re-encoded and downscaled
// for model consumption.
type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// RecoverySuggestion is the advisor's single corrective step. It is never
// applied automatically; Reasoning is surfaced to the operator.
type RecoverySuggestion struct {
	Action    string `json:"action"`
	Selector  string `json:"selector,omitempty"`
	Value     string `json:"value,omitempty"`
	Reasoning string `json:"reasoning"`
}
