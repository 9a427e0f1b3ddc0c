package models

import "time"

// Per-item processing stages, used to attribute failures in the summary.
const (
	StageStaging = "staging"
	StageConvert = "convert"
	StageUpload  = "upload"
)

// RowError is a per-item recoverable failure. It is data, not a Go error:
// components collect these and keep going rather than aborting the batch.
type RowError struct {
	RowID  string `json:"rowId"  firestore:"rowId"`
	Stage  string `json:"stage"  firestore:"stage"`
	Reason string `json:"reason" firestore:"reason"`
}

// FileResult is the final per-candidate verdict assembled by the driver.
type FileResult struct {
	RowID string `json:"rowId"           firestore:"rowId"`
	OK    bool   `json:"ok"              firestore:"ok"`
	Stage string `json:"stage,omitempty" firestore:"stage,omitempty"`
	Error string `json:"error,omitempty" firestore:"error,omitempty"`
}

// RunSummary aggregates everything a single reconciliation run did. It is
// the only record handed to the result sink.
type RunSummary struct {
	RunID            string         `json:"runId"            firestore:"runId"`
	StartedAt        time.Time      `json:"startedAt"        firestore:"startedAt"`
	FinishedAt       time.Time      `json:"finishedAt"       firestore:"finishedAt"`
	TotalCandidates  int            `json:"totalCandidates"  firestore:"totalCandidates"`
	SuccessCount     int            `json:"successCount"     firestore:"successCount"`
	FailureCount     int            `json:"failureCount"     firestore:"failureCount"`
	PerFileResults   []FileResult   `json:"perFileResults"   firestore:"perFileResults"`
	UploadedFiles    []UploadedFile `json:"uploadedFiles"    firestore:"uploadedFiles"`
	DeletedArtifacts []string       `json:"deletedArtifacts" firestore:"deletedArtifacts"`
}
