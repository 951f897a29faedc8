package service

import (
	"sync"

	"github.com/alexandreamato/spamanvil/internal/entity"
)

// PromptHook transforms the prompt pair before it is sent to a provider.
type PromptHook func(system, user string, sub *entity.Submission) (string, string)

// ThresholdHook transforms the spam threshold for one submission.
type ThresholdHook func(threshold int, sub *entity.Submission) int

// Hooks is the extension-point registry. Hooks run in registration order;
// with none registered the pipeline is unchanged. Registration happens
// during startup wiring and is not synchronized against scoring passes.
type Hooks struct {
	mu        sync.RWMutex
	prompt    []PromptHook
	threshold []ThresholdHook
}

func NewHooks() *Hooks {
	return &Hooks{}
}

func (h *Hooks) RegisterPromptHook(fn PromptHook) {
	h.mu.Lock()
	h.prompt = append(h.prompt, fn)
	h.mu.Unlock()
}

func (h *Hooks) RegisterThresholdHook(fn ThresholdHook) {
	h.mu.Lock()
	h.threshold = append(h.threshold, fn)
	h.mu.Unlock()
}

func (h *Hooks) applyPrompt(system, user string, sub *entity.Submission) (string, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.prompt {
		system, user = fn(system, user, sub)
	}
	return system, user
}

func (h *Hooks) applyThreshold(threshold int, sub *entity.Submission) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.threshold {
		threshold = fn(threshold, sub)
	}
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 100 {
		threshold = 100
	}
	return threshold
}
