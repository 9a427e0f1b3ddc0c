package models

import "time"

// RemoteArtifact describes one object found under the configured prefix of
// the remote store at the start of a run.
type RemoteArtifact struct {
	Name         string
	LastModified time.Time
	Size         int64
}

// ConversionOutcome records the result of converting one staged source file.
// Success is decided by the existence of the target file, never by the
// converter's diagnostics: the tool emits non-fatal warnings on success and
// occasionally nothing at all on silent failure.
type ConversionOutcome struct {
	FileName   string `json:"fileName"`
	Success    bool   `json:"success"`
	PDFCreated bool   `json:"pdfCreated"`
	PageCount  int    `json:"pageCount,omitempty"`
	Error      string `json:"error,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

// UploadedFile is the record produced for every row uploaded this run.
// Hash is a keyed MAC of the row's verification code; EncryptedURL is the
// reversibly encrypted retrieval reference.
type UploadedFile struct {
	RowID        string `json:"rowId"        firestore:"rowId"`
	Hash         string `json:"hash"         firestore:"hash"`
	EncryptedURL string `json:"encryptedUrl" firestore:"encryptedUrl"`
}
