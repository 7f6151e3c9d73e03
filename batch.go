package festoon

import "fmt"

// ChangeAccessor exposes decoration mutations to a ChangeDecorations
// callback. It is only valid for the duration of the callback; using it
// afterwards is a no-op.
type ChangeAccessor struct {
	doc     *Document
	ownerID int
}

// Add creates a decoration and returns its id.
func (a *ChangeAccessor) Add(r Range, opts *Options) string {
	if a.doc == nil {
		return ""
	}
	return a.doc.AddDecoration(r, opts, a.ownerID)
}

// ChangeRange moves the decoration to a new range.
func (a *ChangeAccessor) ChangeRange(id string, r Range) {
	if a.doc == nil {
		return
	}
	a.doc.ChangeDecorationRange(id, r)
}

// ChangeOptions replaces the decoration's options.
func (a *ChangeAccessor) ChangeOptions(id string, opts *Options) {
	if a.doc == nil {
		return
	}
	a.doc.ChangeDecorationOptions(id, opts)
}

// Remove deletes the decoration.
func (a *ChangeAccessor) Remove(id string) {
	if a.doc == nil {
		return
	}
	a.doc.RemoveDecoration(id)
}

// Delta atomically swaps the decorations named by oldIDs for ones built
// from newSpecs, reusing storage where the counts line up.
func (a *ChangeAccessor) Delta(oldIDs []string, newSpecs []DecorationSpec) []string {
	if a.doc == nil {
		return make([]string, len(newSpecs))
	}
	return a.doc.DeltaDecorations(a.ownerID, oldIDs, newSpecs)
}

// ChangeDecorations runs fn with a change accessor scoped to ownerID.
// However many mutations the callback performs, and however deeply such
// calls nest, at most one change notification is emitted, after the
// outermost call completes. A panic in the callback is contained: the
// accessor is invalidated, the panic is reported to the diagnostics sink,
// and the mutations applied before it stand.
func (d *Document) ChangeDecorations(ownerID int, fn func(accessor *ChangeAccessor) error) error {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return ErrDocumentClosed
	}
	d.batchDepth++
	d.mu.Unlock()

	acc := &ChangeAccessor{doc: d, ownerID: ownerID}
	cbErr := d.runBatchCallback(fn, acc)
	acc.doc = nil

	d.mu.Lock()
	d.batchDepth--
	notify := false
	var handler func()
	if d.batchDepth == 0 && d.pendingChange && !d.disposed {
		d.pendingChange = false
		notify = true
		handler = d.onChange
	}
	d.mu.Unlock()

	if notify && handler != nil {
		handler()
	}
	if cbErr != nil {
		d.diagnostics.ReportError(cbErr)
	}
	return cbErr
}

func (d *Document) runBatchCallback(fn func(accessor *ChangeAccessor) error, acc *ChangeAccessor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoration batch callback panicked: %v", r)
		}
	}()
	return fn(acc)
}
