// Package mocks 提供测试用的 Handler 实现。
package mocks

import (
	"sync"
	"time"

	"github.com/BaSui01/oef-go/protocol"
)

// =============================================================================
// 📨 RecordingHandler
// =============================================================================

// Event 是一次分发回调的记录
type Event struct {
	Kind       string
	ID         int32
	DialogueID int32
	Origin     string
	Target     int32
	Agents     []string
	Operation  protocol.ErrorOperation
	Content    []byte
	CFP        protocol.CFPPayload
	Proposals  protocol.ProposePayload
}

// RecordingHandler 记录所有回调，满足 proxy.Handler 接口
type RecordingHandler struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
	errFn  func(Event) error
}

// NewRecordingHandler 创建记录处理器
func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{ch: make(chan Event, 256)}
}

// WithError 设置错误注入函数，返回非 nil 时回调返回该错误
func (h *RecordingHandler) WithError(fn func(Event) error) *RecordingHandler {
	h.mu.Lock()
	h.errFn = fn
	h.mu.Unlock()
	return h
}

// Events 返回已记录事件的副本
func (h *RecordingHandler) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// Next 等待下一个事件，超时返回 false
func (h *RecordingHandler) Next(timeout time.Duration) (Event, bool) {
	select {
	case e := <-h.ch:
		return e, true
	case <-time.After(timeout):
		return Event{}, false
	}
}

func (h *RecordingHandler) record(e Event) error {
	h.mu.Lock()
	h.events = append(h.events, e)
	fn := h.errFn
	h.mu.Unlock()

	select {
	case h.ch <- e:
	default:
	}
	if fn != nil {
		return fn(e)
	}
	return nil
}

func (h *RecordingHandler) OnSearchResult(searchID int32, agents []string) error {
	return h.record(Event{Kind: "search_result", ID: searchID, Agents: agents})
}

func (h *RecordingHandler) OnOEFError(answerID int32, op protocol.ErrorOperation) error {
	return h.record(Event{Kind: "oef_error", ID: answerID, Operation: op})
}

func (h *RecordingHandler) OnDialogueError(answerID, dialogueID int32, origin string) error {
	return h.record(Event{Kind: "dialogue_error", ID: answerID, DialogueID: dialogueID, Origin: origin})
}

func (h *RecordingHandler) OnMessage(msgID, dialogueID int32, origin string, content []byte) error {
	return h.record(Event{Kind: "content", ID: msgID, DialogueID: dialogueID, Origin: origin, Content: content})
}

func (h *RecordingHandler) OnCFP(msgID, dialogueID int32, origin string, target int32, q protocol.CFPPayload) error {
	return h.record(Event{Kind: "cfp", ID: msgID, DialogueID: dialogueID, Origin: origin, Target: target, CFP: q})
}

func (h *RecordingHandler) OnPropose(msgID, dialogueID int32, origin string, target int32, p protocol.ProposePayload) error {
	return h.record(Event{Kind: "propose", ID: msgID, DialogueID: dialogueID, Origin: origin, Target: target, Proposals: p})
}

func (h *RecordingHandler) OnAccept(msgID, dialogueID int32, origin string, target int32) error {
	return h.record(Event{Kind: "accept", ID: msgID, DialogueID: dialogueID, Origin: origin, Target: target})
}

func (h *RecordingHandler) OnDecline(msgID, dialogueID int32, origin string, target int32) error {
	return h.record(Event{Kind: "decline", ID: msgID, DialogueID: dialogueID, Origin: origin, Target: target})
}
