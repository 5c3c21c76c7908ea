package memdoc

// Op names a structural mutation recorded in the journal.
type Op string

const (
	OpCreateNode Op = "create-node"
	OpRemoveNode Op = "remove-node"
	OpCreateLink Op = "create-link"
	OpRemoveLink Op = "remove-link"
)

// Event is one journal entry. Subject is the node label (or kind#id while
// unlabeled) or `from:port->to:port` for links.
type Event struct {
	Op      Op
	Subject string
}

// record appends to the journal. Callers must hold d.mu.
func (d *Document) record(op Op, subject string) {
	d.journal = append(d.journal, Event{Op: op, Subject: subject})
}

// Journal returns a copy of every recorded event in order.
func (d *Document) Journal() []Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Event(nil), d.journal...)
}

// ResetJournal drops all recorded events.
func (d *Document) ResetJournal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.journal = nil
}
