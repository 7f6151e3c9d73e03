package festoon

import (
	"log"
	"sync"
)

// DiagnosticsSink receives failures that the library contains rather than
// propagates, such as a decoration batch callback panicking.
type DiagnosticsSink interface {
	ReportError(err error)
}

// stderrSink is the default diagnostics sink.
type stderrSink struct{}

func (stderrSink) ReportError(err error) {
	log.Printf("festoon: %v", err)
}

// LibraryOptions configures the festoon library.
type LibraryOptions struct {
	// Diagnostics receives contained failures. Defaults to the standard
	// logger on stderr.
	Diagnostics DiagnosticsSink
}

// Library manages document instances and the resources they share: the
// options registry and the per-instance id discriminators. All counters
// live here rather than in process-wide globals, so independent libraries
// never interfere.
type Library struct {
	mu          sync.Mutex
	diagnostics DiagnosticsSink
	options     *OptionsRegistry
	openedCount uint64
}

// Init initializes the festoon library.
func Init(options LibraryOptions) (*Library, error) {
	lib := &Library{
		diagnostics: options.Diagnostics,
		options:     NewOptionsRegistry(),
	}
	if lib.diagnostics == nil {
		lib.diagnostics = stderrSink{}
	}
	return lib, nil
}

// Options returns the library's shared options registry.
func (lib *Library) Options() *OptionsRegistry {
	return lib.options
}

// instanceDiscriminators is the alphabet cycled through when assigning
// per-document discriminators. The discriminator keeps ids short and
// reduces, without guaranteeing, collisions between ids minted by
// different documents.
const instanceDiscriminators = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func (lib *Library) nextInstanceID() string {
	lib.mu.Lock()
	n := lib.openedCount
	lib.openedCount++
	lib.mu.Unlock()
	return string(instanceDiscriminators[n%uint64(len(instanceDiscriminators))])
}

// DocumentOptions configures how a Document is opened.
type DocumentOptions struct {
	// Data source (at most one). With neither DataString, DataBytes nor
	// Index set, the document opens empty.
	DataString string
	DataBytes  []byte

	// Index tracks an external text engine instead of owning the text.
	// Such documents are edited through that engine and notified of edits
	// via ApplyEdit.
	Index PositionIndex

	// Decorations are created at open time, under owner id 0.
	Decorations []DecorationSpec

	// OnDecorationsChanged is invoked once per outermost mutation or
	// batch, after the mutation has been applied and outside any internal
	// lock. It carries no payload.
	OnDecorationsChanged func()

	// Diagnostics overrides the library's sink for this document.
	Diagnostics DiagnosticsSink
}

// Document is a document model instance: the decoration registry, its
// interval tree, and the position index the registry consumes. All access
// is serialized; decoration ids minted by one Document are meaningless to
// any other and fail safe as unknown.
type Document struct {
	lib        *Library
	instanceID string

	mu sync.Mutex

	index      PositionIndex
	ownedIndex *LineIndex // nil when Index was supplied externally

	options *OptionsRegistry
	tree    *intervalTree
	byID    map[string]nodeRef

	// versionID stamps position caches; it increments on every text edit.
	versionID        uint64
	lastDecorationID uint64

	onChange    func()
	diagnostics DiagnosticsSink

	batchDepth    int
	pendingChange bool
	disposed      bool
}

// Open creates a Document from one of the configured sources.
func (lib *Library) Open(options DocumentOptions) (*Document, error) {
	sourceCount := 0
	if options.DataString != "" {
		sourceCount++
	}
	if options.DataBytes != nil {
		sourceCount++
	}
	if options.Index != nil {
		sourceCount++
	}
	if sourceCount > 1 {
		return nil, ErrMultipleDataSources
	}

	d := &Document{
		lib:         lib,
		instanceID:  lib.nextInstanceID(),
		options:     lib.options,
		tree:        newIntervalTree(),
		byID:        make(map[string]nodeRef),
		versionID:   1,
		onChange:    options.OnDecorationsChanged,
		diagnostics: options.Diagnostics,
	}
	if d.diagnostics == nil {
		d.diagnostics = lib.diagnostics
	}

	switch {
	case options.Index != nil:
		d.index = options.Index
	case options.DataBytes != nil:
		d.ownedIndex = NewLineIndex(string(options.DataBytes))
		d.index = d.ownedIndex
	default:
		d.ownedIndex = NewLineIndex(options.DataString)
		d.index = d.ownedIndex
	}

	for _, spec := range options.Decorations {
		d.addLocked(0, spec.Range, spec.Options)
	}

	return d, nil
}

// Close releases the document. Pending and future change notifications
// are suppressed, and all decorations are discarded.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return nil
	}
	d.disposed = true
	d.pendingChange = false
	d.tree = newIntervalTree()
	d.byID = make(map[string]nodeRef)
	return nil
}

// VersionID returns the document version stamp. It increments on every
// text edit; decoration position caches are valid exactly when their
// stamp matches it.
func (d *Document) VersionID() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.versionID
}

// LineCount returns the number of lines in the document.
func (d *Document) LineCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index.LineCount()
}

// Index returns the position index the document consumes.
func (d *Document) Index() PositionIndex {
	return d.index
}

// Text returns the document content for documents that own their text,
// and "" for documents tracking an external index.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ownedIndex == nil {
		return ""
	}
	return d.ownedIndex.Text()
}

// Replace substitutes the byte range [offset, offset+length) with text,
// shifting decoration positions per their stickiness. Only documents that
// own their text can be edited this way.
func (d *Document) Replace(offset, length int, text string) error {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return ErrDocumentClosed
	}
	if d.ownedIndex == nil {
		d.mu.Unlock()
		return ErrExternalIndex
	}

	// Clamp like every other positional input.
	if offset < 0 {
		offset = 0
	}
	if offset > d.ownedIndex.Length() {
		offset = d.ownedIndex.Length()
	}
	if length < 0 {
		length = 0
	}
	if offset+length > d.ownedIndex.Length() {
		length = d.ownedIndex.Length() - offset
	}

	d.ownedIndex.Replace(offset, length, text)
	d.versionID++
	d.tree.acceptReplace(offset, length, len(text), false, d.versionID)

	notify, handler := d.noteChangeLocked()
	d.mu.Unlock()
	if notify && handler != nil {
		handler()
	}
	return nil
}

// Insert is shorthand for Replace with zero deleted length.
func (d *Document) Insert(offset int, text string) error {
	return d.Replace(offset, 0, text)
}

// Delete is shorthand for Replace with empty replacement text.
func (d *Document) Delete(offset, length int) error {
	return d.Replace(offset, length, "")
}

// ApplyEdit informs a document backed by an external position index that
// its text was edited: removedLength bytes at offset were replaced by
// insertedLength bytes. The index must already reflect the edit when this
// is called.
func (d *Document) ApplyEdit(offset, removedLength, insertedLength int) error {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return ErrDocumentClosed
	}
	if offset < 0 || removedLength < 0 || insertedLength < 0 {
		d.mu.Unlock()
		return ErrInvalidPosition
	}

	d.versionID++
	d.tree.acceptReplace(offset, removedLength, insertedLength, false, d.versionID)

	notify, handler := d.noteChangeLocked()
	d.mu.Unlock()
	if notify && handler != nil {
		handler()
	}
	return nil
}

// Reset atomically discards every decoration and replaces the content.
func (d *Document) Reset(text string) error {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return ErrDocumentClosed
	}
	if d.ownedIndex == nil {
		d.mu.Unlock()
		return ErrExternalIndex
	}

	d.ownedIndex = NewLineIndex(text)
	d.index = d.ownedIndex
	d.tree = newIntervalTree()
	d.byID = make(map[string]nodeRef)
	d.versionID++

	notify, handler := d.noteChangeLocked()
	d.mu.Unlock()
	if notify && handler != nil {
		handler()
	}
	return nil
}

// mutate runs fn under the document lock; if fn reports a change, the
// coalesced change notification is emitted (or deferred to the enclosing
// batch) after the lock is released.
func (d *Document) mutate(fn func() bool) {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	notify := false
	var handler func()
	if fn() {
		notify, handler = d.noteChangeLocked()
	}
	d.mu.Unlock()
	if notify && handler != nil {
		handler()
	}
}

// noteChangeLocked records that decorations changed. Inside a batch the
// change is held for the outermost close; otherwise it reports that the
// caller should emit the notification once the lock is released.
func (d *Document) noteChangeLocked() (bool, func()) {
	if d.disposed {
		return false, nil
	}
	if d.batchDepth > 0 {
		d.pendingChange = true
		return false, nil
	}
	return true, d.onChange
}
