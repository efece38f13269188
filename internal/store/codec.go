package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"citypulse/internal/models"
)

// EncodeRun serialises a run for the payload column.
func EncodeRun(run *models.Run) ([]byte, error) {
	b, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	return b, nil
}

// DecodeRun is the inverse of EncodeRun.
func DecodeRun(b []byte) (*models.Run, error) {
	var run models.Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

// JoinList and SplitList store city and pillar selections in a single text column.
func JoinList(items []string) string { return strings.Join(items, "|") }

func SplitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "|")
}
