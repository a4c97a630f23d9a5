package domain

// HistoryEntry is one persisted day: the completed input and its decision
type HistoryEntry struct {
	Date   Date      `json:"date"`
	Input  *Input    `json:"input"`
	Output *Decision `json:"output,omitempty"`
}
