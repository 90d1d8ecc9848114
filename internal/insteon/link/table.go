package link

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/db"
)

// Operation names reported to the Recorder.
const (
	OpWrite  = "write"
	OpDelete = "delete"
)

// Table drives one endpoint's hardware link table through the protocol and
// keeps its mirror in step.
//
// The mirror is only changed from reply handlers, after the endpoint has
// acknowledged the write or delete, and is saved after every change.
type Table struct {
	// Endpoint is the message target. The zero address addresses the modem.
	Endpoint insteon.Address

	// Owner is the endpoint's real address, used in logs and metrics.
	Owner insteon.Address

	Mirror   *db.Mirror
	Protocol insteon.Protocol
	Logger   insteon.Logger
	Recorder insteon.Recorder
}

func (t *Table) logger() insteon.Logger {
	if t.Logger == nil {
		return insteon.NoopLogger{}
	}
	return t.Logger
}

func (t *Table) recorder() insteon.Recorder {
	if t.Recorder == nil {
		return insteon.NoopRecorder{}
	}
	return t.Recorder
}

// Write sends a WriteRecord for entry. On ACK the entry is added to (or
// updated in) the mirror and onDone receives (true, msg, *insteon.Entry).
func (t *Table) Write(entry insteon.Entry, onDone insteon.DoneFunc) {
	msg := insteon.WriteRecord{Endpoint: t.Endpoint, Entry: entry}
	t.Protocol.Send(msg, insteon.HandlerFunc(func(r insteon.Reply) insteon.Status {
		if err := replyError(r); err != nil {
			t.fail(OpWrite, entry, err, onDone)
			return insteon.Finished
		}

		t.Mirror.Add(entry)
		t.save()
		t.recorder().RecordLinkUpdate(t.Owner, OpWrite, true)

		t.logger().Info("link record written",
			"endpoint", t.Owner.String(),
			"entry", entry.String(),
		)
		e := entry
		onDone.Call(true, fmt.Sprintf("%s database updated: %s", t.Owner, entry), &e)
		return insteon.Finished
	}))
}

// Delete sends a DeleteRecord for entry. On ACK the entry is removed from the
// mirror and onDone receives (true, msg, *insteon.Entry).
func (t *Table) Delete(entry insteon.Entry, onDone insteon.DoneFunc) {
	msg := insteon.DeleteRecord{Endpoint: t.Endpoint, Entry: entry}
	t.Protocol.Send(msg, insteon.HandlerFunc(func(r insteon.Reply) insteon.Status {
		if err := replyError(r); err != nil {
			t.fail(OpDelete, entry, err, onDone)
			return insteon.Finished
		}

		t.Mirror.Delete(entry)
		t.save()
		t.recorder().RecordLinkUpdate(t.Owner, OpDelete, true)

		t.logger().Info("link record deleted",
			"endpoint", t.Owner.String(),
			"entry", entry.String(),
		)
		e := entry
		onDone.Call(true, fmt.Sprintf("%s database entry removed: %s", t.Owner, entry), &e)
		return insteon.Finished
	}))
}

// Read clears the mirror and downloads the whole table. Each record reply is
// added to the mirror; the end-of-table reply saves it and reports success.
// A timeout or link error reports failure and leaves the partial mirror.
func (t *Table) Read(onDone insteon.DoneFunc) {
	t.Mirror.Clear()
	t.logger().Debug("downloading link table", "endpoint", t.Owner.String())

	t.Protocol.Send(insteon.GetFirstRecord{Endpoint: t.Endpoint}, insteon.HandlerFunc(func(r insteon.Reply) insteon.Status {
		if r.Err != nil {
			t.logger().Warn("link table download failed",
				"endpoint", t.Owner.String(),
				"entries", t.Mirror.Len(),
				"error", r.Err,
			)
			t.recorder().RecordRefresh(t.Owner, t.Mirror.Len(), false)
			onDone.Call(false, fmt.Sprintf("%s database download failed: %v", t.Owner, r.Err), nil)
			return insteon.Finished
		}

		if r.Ack && r.Entry != nil {
			t.Mirror.Add(*r.Entry)
			return insteon.Continue
		}

		t.save()
		n := t.Mirror.Len()
		t.recorder().RecordRefresh(t.Owner, n, true)
		t.logger().Info("link table downloaded", "endpoint", t.Owner.String(), "entries", n)
		onDone.Call(true, fmt.Sprintf("%s database download complete: %d entries", t.Owner, n), nil)
		return insteon.Finished
	}))
}

func (t *Table) save() {
	if err := t.Mirror.Save(); err != nil {
		t.logger().Error("error saving link database",
			"endpoint", t.Owner.String(),
			"error", err,
		)
	}
}

func (t *Table) fail(op string, entry insteon.Entry, err error, onDone insteon.DoneFunc) {
	t.recorder().RecordLinkUpdate(t.Owner, op, false)
	t.logger().Warn("link record "+op+" failed",
		"endpoint", t.Owner.String(),
		"entry", entry.String(),
		"error", err,
	)

	reason := "rejected"
	if errors.Is(err, insteon.ErrTimeout) {
		reason = "timed out"
	} else if !errors.Is(err, insteon.ErrNAK) {
		reason = "failed"
	}
	onDone.Call(false, fmt.Sprintf("%s database %s %s: %s", t.Owner, op, reason, entry), nil)
}

// replyError maps a write/delete reply to an error (nil on ACK).
func replyError(r insteon.Reply) error {
	if r.Err != nil {
		return r.Err
	}
	if !r.Ack {
		return insteon.ErrNAK
	}
	return nil
}
