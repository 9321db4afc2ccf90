package common

import (
	"encoding/json"
	"os"
	"time"
)

// CIResult is the machine-readable outcome a tool emits in --ci mode.
type CIResult struct {
	OK         bool     `json:"ok"`
	Title      string   `json:"title"`
	Details    []string `json:"details,omitempty"`
	Error      string   `json:"error,omitempty"`
	FinishedAt string   `json:"finished_at"`
}

// PrintCIResult writes a single indented JSON object to stdout.
func PrintCIResult(ok bool, title string, details []string, err error) {
	result := CIResult{
		OK:         ok,
		Title:      title,
		Details:    details,
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		result.Error = err.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
