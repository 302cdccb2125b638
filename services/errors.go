package services

import "errors"

// Sentinel errors surfaced by the service layer. Controllers map these to
// machine-readable response signals; matching is done with errors.Is.
var (
	// ErrProjectNotFound: the referenced project does not resolve and could
	// not be created lazily.
	ErrProjectNotFound = errors.New("project not found")

	// ErrNoChunks: processing or indexing found nothing to work on.
	ErrNoChunks = errors.New("no chunks found for project")

	// ErrVectorInsert: the vector store rejected a batch insert. Pages
	// inserted before the failure are not rolled back.
	ErrVectorInsert = errors.New("insert into vector db failed")

	// ErrGeneration: the generation provider returned no text. Retries, if
	// any, belong to the provider adapter, not here.
	ErrGeneration = errors.New("generation provider returned no answer")

	// ErrTemplateNotFound: a required prompt template is missing in both the
	// requested and the default language. Non-retryable configuration failure.
	ErrTemplateNotFound = errors.New("prompt template not found")

	// ErrFileNotFound: the asset referenced by a processing request does not
	// exist for the project.
	ErrFileNotFound = errors.New("no file found with this id")

	// ErrNoFiles: the project has no processable assets.
	ErrNoFiles = errors.New("no files found for project")
)
