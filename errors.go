// Package festoon maintains decorations (styled annotations and tracked
// ranges) anchored to ranges of a mutable, line-structured text document,
// keeping each decoration's reported position correct and cheap to query
// while the document is edited.
package festoon

import "errors"

// Position errors
var (
	// ErrInvalidPosition indicates that a position is out of bounds.
	ErrInvalidPosition = errors.New("position out of bounds")
)

// Document errors
var (
	// ErrMultipleDataSources indicates that more than one data source was
	// provided in DocumentOptions.
	ErrMultipleDataSources = errors.New("multiple data sources provided")

	// ErrExternalIndex indicates that a text mutation was requested on a
	// document backed by an external position index. Such documents are
	// edited through their own text engine and notified via ApplyEdit.
	ErrExternalIndex = errors.New("document text is owned by an external position index")

	// ErrDocumentClosed indicates that the document has been closed.
	ErrDocumentClosed = errors.New("document is closed")
)

// Tree structure errors
var (
	// ErrInternal indicates an internal consistency error (should not happen).
	ErrInternal = errors.New("internal error")
)
