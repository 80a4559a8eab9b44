package web

import (
	"encoding/json"

	"github.com/sweeney/hotspot-projector/internal/history"
	"github.com/sweeney/hotspot-projector/internal/projection"
)

// HistoryJSON is the envelope for /history.json.
type HistoryJSON struct {
	History []history.Record `json:"history"`
}

func formatProjections(snap projection.Snapshot) []byte {
	if snap.Projections == nil {
		snap.Projections = []projection.View{}
	}
	data, _ := json.Marshal(snap)
	return data
}

func formatHistory(records []history.Record) []byte {
	if records == nil {
		records = []history.Record{}
	}
	data, _ := json.MarshalIndent(HistoryJSON{History: records}, "", "  ")
	return data
}
