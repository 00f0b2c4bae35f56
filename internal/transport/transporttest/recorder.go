// Package transporttest provides an in-memory transport.Transport for tests.
package transporttest

import (
	"context"
	"sync"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
)

// Op names a transport call.
type Op string

const (
	OpSend   Op = "send"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
	OpAnswer Op = "answer"
)

// Call is one recorded transport call.
type Call struct {
	Op         Op
	ChatID     int64
	MessageID  int
	Text       string
	Layout     keyboard.Layout
	CallbackID string
}

// Recorder records every call and hands out increasing message ids.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	nextID int

	sendErr   error
	answerErr error
	editErr   map[int]error
	deleteErr map[int]error
}

// NewRecorder returns a Recorder whose first sent message gets firstID.
func NewRecorder(firstID int) *Recorder {
	if firstID < 1 {
		firstID = 1
	}
	return &Recorder{
		nextID:    firstID,
		editErr:   make(map[int]error),
		deleteErr: make(map[int]error),
	}
}

// SetNextID moves the id counter, e.g. to simulate user messages in between.
func (r *Recorder) SetNextID(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID = id
}

// NextID returns the id the next Send will get.
func (r *Recorder) NextID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextID
}

func (r *Recorder) FailSend(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendErr = err
}

func (r *Recorder) FailAnswer(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answerErr = err
}

func (r *Recorder) FailEdit(messageID int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editErr[messageID] = err
}

func (r *Recorder) FailDelete(messageID int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteErr[messageID] = err
}

func (r *Recorder) Send(_ context.Context, chatID int64, text string, layout keyboard.Layout) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Op: OpSend, ChatID: chatID, Text: text, Layout: layout.Clone()})
	if r.sendErr != nil {
		return 0, r.sendErr
	}

	id := r.nextID
	r.nextID++
	r.calls[len(r.calls)-1].MessageID = id
	return id, nil
}

func (r *Recorder) Edit(_ context.Context, chatID int64, messageID int, text string, layout keyboard.Layout) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Op: OpEdit, ChatID: chatID, MessageID: messageID, Text: text, Layout: layout.Clone()})
	return r.editErr[messageID]
}

func (r *Recorder) Delete(_ context.Context, chatID int64, messageID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Op: OpDelete, ChatID: chatID, MessageID: messageID})
	return r.deleteErr[messageID]
}

func (r *Recorder) Answer(_ context.Context, callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Op: OpAnswer, CallbackID: callbackID, Text: text})
	return r.answerErr
}

// Calls returns a copy of every recorded call in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Filter returns the recorded calls of one kind.
func (r *Recorder) Filter(op Op) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Deleted returns the ids passed to Delete in call order.
func (r *Recorder) Deleted() []int {
	var ids []int
	for _, c := range r.Filter(OpDelete) {
		ids = append(ids, c.MessageID)
	}
	return ids
}

// LastSend returns the most recent Send call.
func (r *Recorder) LastSend() (Call, bool) {
	sends := r.Filter(OpSend)
	if len(sends) == 0 {
		return Call{}, false
	}
	return sends[len(sends)-1], true
}

// Reset forgets recorded calls but keeps the id counter and failures.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
