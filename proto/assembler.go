package proto

import (
	"sort"
	"strings"
	"sync"
)

// Assembler accumulates inbound frames keyed by messageId and reassembles
// the original payload once a message is complete.
//
// In production an Assembler is driven by one goroutine only (the message
// loop). Every method still takes an internal mutex, so sharing one
// Assembler between goroutines is safe; the message loop never contends
// on it.
type Assembler struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	msgType MessageType
	bySeq map[int]string // sequenceNumber -> payload slice
	lastSeq int            // sequence number of the frame with isLast set; -1 if not seen yet
	frames   int  // frames accumulated, duplicates included
	complete bool // set once the completeness rule has held; later frames never unset it
}

// NewAssembler returns an empty Assembler ready to accept frames.
func NewAssembler() *Assembler {
	return &Assembler{entries: make(map[string]*entry)}
}

// AddFragment inserts frame into the assembler's state. If the frame
// completes its message per the rule in spec.md §4.3 — at least one
// accumulated frame has isLast set, the accumulated frame count equals
// lastSeq+1, and every sequence number in [0,lastSeq] appears exactly
// once — AddFragment returns (messageId, true). Otherwise it returns
// ("", false).
//
// Frames arriving after a message has already been completed (and not yet
// cleaned up) are still inserted but can never flip completeness again
// for that messageId, since it was already complete. Frames for a
// messageId that was already cleaned up start a fresh entry.
func (a *Assembler) AddFragment(frame MessageFrame) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := frame.Header.MessageID
	e, ok := a.entries[id]
	if !ok {
		e = &entry{msgType: frame.Header.Type, bySeq: make(map[int]string), lastSeq: -1}
		a.entries[id] = e
	}

	e.bySeq[frame.Header.SequenceNumber] = frame.Payload
	e.frames++
	if frame.Header.IsLast {
		e.lastSeq = frame.Header.SequenceNumber
	}

	if !a.isCompleteLocked(e) {
		return "", false
	}
	return id, true
}

// GetAssembled returns the concatenated payload for messageId, ordered by
// ascending sequenceNumber, iff that message is currently complete.
func (a *Assembler) GetAssembled(messageID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[messageID]
	if !ok || !a.isCompleteLocked(e) {
		return "", false
	}

	seqs := make([]int, 0, len(e.bySeq))
	for seq := range e.bySeq {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	var b strings.Builder
	for _, seq := range seqs {
		b.WriteString(e.bySeq[seq])
	}
	return b.String(), true
}

// GetMessageType returns the MessageType shared by messageId's frames iff
// that message is currently complete.
func (a *Assembler) GetMessageType(messageID string) (MessageType, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[messageID]
	if !ok || !a.isCompleteLocked(e) {
		return "", false
	}
	return e.msgType, true
}

// Cleanup erases all state held for messageId. Safe to call for an id
// that has no entry (no-op).
func (a *Assembler) Cleanup(messageID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, messageID)
}

// IncompleteCount returns the number of messageIds currently tracked that
// have not (yet) satisfied the completeness rule.
func (a *Assembler) IncompleteCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, e := range a.entries {
		if !a.isCompleteLocked(e) {
			n++
		}
	}
	return n
}

func (a *Assembler) isCompleteLocked(e *entry) bool {
	if e.complete {
		return true
	}
	if e.lastSeq < 0 {
		return false
	}
	if e.frames != e.lastSeq+1 || len(e.bySeq) != e.frames {
		return false
	}
	for seq := 0; seq <= e.lastSeq; seq++ {
		if _, ok := e.bySeq[seq]; !ok {
			return false
		}
	}
	e.complete = true
	return true
}
