// Package job owns the transcription pipeline: the job record, its state
// machine, the durability poll, and the orchestrator that drives a
// submission from raw upload to searchable transcript.
package job

import (
	"time"

	"hark/store"
)

// Collection is the record store collection holding job records.
const Collection = "jobs"

// State is a job's position in the pipeline.
type State string

const (
	StateCreated      State = "Created"
	StateUploading    State = "Uploading"
	StateConverted    State = "Converted"
	StateConfirmed    State = "Confirmed"
	StateTranscribing State = "Transcribing"
	StateCompleted    State = "Completed"
	StateFailed       State = "Failed"
)

// Terminal reports whether no further transition can occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var nextState = map[State]State{
	StateCreated:      StateUploading,
	StateUploading:    StateConverted,
	StateConverted:    StateConfirmed,
	StateConfirmed:    StateTranscribing,
	StateTranscribing: StateCompleted,
}

// CanTransition reports whether the edge from → to exists in the state
// machine: one step forward along the pipeline, or any non-terminal state
// into Failed. Nothing leaves a terminal state.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return nextState[from] == to
}

// Job is one end-to-end processing request for a single uploaded audio
// file. The transcript fields are populated only on reaching Completed.
type Job struct {
	ID                  string
	State               State
	OriginalName        string
	Notes               string
	StorageRefRaw       string
	StorageRefConverted string
	TranscriptText      string
	TranscriptMarkup    string
	TranscriptRaw       string
	ErrorCause          string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Fields renders the complete record for the initial upsert. Later stage
// transitions write partial records instead, so fields they do not own are
// never clobbered.
func (j Job) Fields() store.Record {
	return store.Record{
		"id":                  j.ID,
		"state":               string(j.State),
		"originalName":        j.OriginalName,
		"notes":               j.Notes,
		"storageRefRaw":       j.StorageRefRaw,
		"storageRefConverted": j.StorageRefConverted,
		"transcriptText":      j.TranscriptText,
		"transcriptMarkup":    j.TranscriptMarkup,
		"transcriptRaw":       j.TranscriptRaw,
		"errorCause":          j.ErrorCause,
		"createdAt":           j.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":           j.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// FromRecord rebuilds a Job from stored fields. Unknown or missing fields
// are tolerated; external viewers may read records mid-pipeline.
func FromRecord(rec store.Record) Job {
	return Job{
		ID:                  recString(rec, "id"),
		State:               State(recString(rec, "state")),
		OriginalName:        recString(rec, "originalName"),
		Notes:               recString(rec, "notes"),
		StorageRefRaw:       recString(rec, "storageRefRaw"),
		StorageRefConverted: recString(rec, "storageRefConverted"),
		TranscriptText:      recString(rec, "transcriptText"),
		TranscriptMarkup:    recString(rec, "transcriptMarkup"),
		TranscriptRaw:       recString(rec, "transcriptRaw"),
		ErrorCause:          recString(rec, "errorCause"),
		CreatedAt:           recTime(rec, "createdAt"),
		UpdatedAt:           recTime(rec, "updatedAt"),
	}
}

func recString(rec store.Record, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

func recTime(rec store.Record, key string) time.Time {
	s := recString(rec, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
