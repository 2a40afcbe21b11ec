package rag

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Exchange is one question/answer pair in a conversation.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"timestamp"`
}

const (
	historyLimit    = 10
	historyInPrompt = 6
)

// History is a bounded conversation log. The oldest exchange is dropped once
// the limit is reached.
type History struct {
	mu        sync.RWMutex
	exchanges []Exchange
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Add(question, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = append(h.exchanges, Exchange{Question: question, Answer: answer, At: time.Now()})
	if len(h.exchanges) > historyLimit {
		h.exchanges = h.exchanges[len(h.exchanges)-historyLimit:]
	}
}

// Recent returns up to n of the latest exchanges, oldest first.
func (h *History) Recent(n int) []Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n > len(h.exchanges) {
		n = len(h.exchanges)
	}
	out := make([]Exchange, n)
	copy(out, h.exchanges[len(h.exchanges)-n:])
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.exchanges)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = nil
}

// Render formats the recent exchanges for prompt injection.
func (h *History) Render() string {
	recent := h.Recent(historyInPrompt)
	if len(recent) == 0 {
		return "No prior conversation."
	}
	var b strings.Builder
	for _, ex := range recent {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.Question, ex.Answer)
	}
	return b.String()
}
