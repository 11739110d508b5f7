package domain

// ArchiveArtifact is the single archive file produced for a run.
type ArchiveArtifact struct {
	Path        string
	Format      Format
	Files       int
	Directories int
	// Bytes is the size of the archive on disk.
	Bytes int64
	// Digest is "blake3:<hex>" over the archive bytes.
	Digest string
}

// UploadResult is the server's confirmation for an accepted submission.
type UploadResult struct {
	Status int
	Body   string
	// Message is the confirmation text shown to the operator.
	Message         string
	SubmissionID    string
	ArtifactRemoved bool
}
