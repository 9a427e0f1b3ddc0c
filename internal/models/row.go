package models

// DocumentRow is one database-sourced document awaiting publication.
// Rows are immutable for the duration of a run; the set of row IDs is the
// authoritative answer to "which artifacts must exist remotely".
type DocumentRow struct {
	ID               string
	Payload          []byte // gzip-compressed source document
	VerificationCode string

	// Extra holds any additional columns returned by the configured query.
	// They are carried opaquely and never interpreted by the pipeline.
	Extra map[string]any
}

// ArtifactName returns the remote object name the row publishes to.
// The "<id>.<ext>" convention is load-bearing: the orphan check and the
// already-published check both depend on splitting it back apart.
func (r DocumentRow) ArtifactName() string {
	return r.ID + ".pdf"
}

// StagedName returns the local source-format file name for the row.
func (r DocumentRow) StagedName() string {
	return r.ID + ".rtf"
}
