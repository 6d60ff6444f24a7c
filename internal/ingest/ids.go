package ingest

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// Case IDs are human-readable call signs so operators can refer to cases
// over radio or chat without reading UUIDs at each other.
var caseAdjectives = []string{
	"Crimson", "Midnight", "Silent", "Shadow", "Obsidian", "Velvet",
	"Phantom", "Smoke", "Iron", "Steel", "Cold", "Deep", "Dark",
	"Whisper", "Echo", "Ghost",
}

var caseNouns = []string{
	"Alibi", "Cipher", "Dossier", "Agent", "Drop", "Signal", "Trace",
	"File", "Wire", "Source", "Asset", "Cover",
}

// NewCaseID generates a case ID: CASE-{ADJECTIVE}-{NOUN}-{4 digits}.
func NewCaseID() string {
	adj := caseAdjectives[rand.Intn(len(caseAdjectives))]
	noun := caseNouns[rand.Intn(len(caseNouns))]
	return fmt.Sprintf("CASE-%s-%s-%04d", adj, noun, 1000+rand.Intn(9000))
}

// NewReportID generates a unique report ID.
func NewReportID() string {
	return "RPT-" + shortUUID()
}

// NewNodeID generates a unique graph node ID with a kind prefix.
func NewNodeID(prefix string) string {
	return prefix + "-" + shortUUID()
}

// NewEdgeID generates a unique graph edge ID.
func NewEdgeID() string {
	return "E-" + shortUUID()
}

func shortUUID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
