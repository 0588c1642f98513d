package daemon

import (
	"fmt"
	"strings"

	"callconsole/internal/types"
)

// Responder produces the assistant's answer to an agent chat request.
type Responder interface {
	Respond(req types.ChatRequest) types.ChatResponse
}

type responseRule struct {
	topic       string
	keywords    []string
	reply       string
	suggestion  string
	suggestions []string
	confidence  float64
}

// RuleResponder answers from keyword rules matched against the latest
// customer utterance and the agent's message. It is deterministic, which
// keeps the daemon usable offline and in tests.
type RuleResponder struct {
	rules []responseRule
}

func NewRuleResponder() *RuleResponder {
	return &RuleResponder{rules: defaultRules}
}

var defaultRules = []responseRule{
	{
		topic:      "billing",
		keywords:   []string{"bill", "charge", "invoice", "refund", "payment"},
		reply:      "The customer is raising a billing concern. Confirm the charge date and amount, then check the account ledger before offering a refund or credit.",
		suggestion: "Could you confirm the date and amount of the charge you're asking about?",
		suggestions: []string{
			"Could you confirm the date and amount of the charge you're asking about?",
			"I can see the transaction; let me check whether a credit applies.",
		},
		confidence: 0.86,
	},
	{
		topic:      "cancellation",
		keywords:   []string{"cancel", "close my account", "terminate", "switch provider"},
		reply:      "The customer wants to cancel. Acknowledge the request, ask what prompted it, and check for retention offers before processing.",
		suggestion: "I'm sorry to hear that. May I ask what's prompting you to cancel today?",
		suggestions: []string{
			"I'm sorry to hear that. May I ask what's prompting you to cancel today?",
			"Before I process that, let me see if there's an option that better fits your needs.",
		},
		confidence: 0.82,
	},
	{
		topic:      "technical",
		keywords:   []string{"not working", "error", "broken", "crash", "can't log", "cannot log", "outage"},
		reply:      "This looks like a technical issue. Collect the device, the exact error text and when it started, then walk through a restart before escalating.",
		suggestion: "Can you tell me the exact error message you're seeing?",
		suggestions: []string{
			"Can you tell me the exact error message you're seeing?",
			"Let's try restarting the device together and see if that clears it.",
		},
		confidence: 0.78,
	},
	{
		topic:      "frustration",
		keywords:   []string{"angry", "frustrated", "unacceptable", "ridiculous", "manager", "supervisor"},
		reply:      "The customer is frustrated. Acknowledge the experience, avoid deflecting, and state the concrete next step you will take. Offer a supervisor only if asked twice.",
		suggestion: "I understand how frustrating this has been, and I'm going to take care of it now.",
		suggestions: []string{
			"I understand how frustrating this has been, and I'm going to take care of it now.",
			"Thank you for your patience; here's exactly what I'll do next.",
		},
		confidence: 0.8,
	},
	{
		topic:      "address",
		keywords:   []string{"address", "moving", "move", "relocat"},
		reply:      "The customer needs an address update. Verify identity, capture the new address and effective date, and confirm the change back to them.",
		suggestion: "Could you give me the new address and the date it takes effect?",
		suggestions: []string{
			"Could you give me the new address and the date it takes effect?",
		},
		confidence: 0.84,
	},
}

const (
	fallbackReply      = "No specific topic detected yet. Keep the customer talking with open questions and summarize what you've heard so far."
	fallbackSuggestion = "Could you tell me a bit more about what's going on?"
	fallbackConfidence = 0.4
)

func (r *RuleResponder) Respond(req types.ChatRequest) types.ChatResponse {
	utterance := latestCustomerUtterance(req.Context.Transcript)
	haystack := strings.ToLower(utterance + " " + req.Message)
	rule, matched := r.match(haystack)

	if req.ResponseLevel == types.ResponseLevelQuick {
		conf := fallbackConfidence
		text := fallbackSuggestion
		if matched {
			conf = rule.confidence
			text = rule.suggestion
		}
		return types.ChatResponse{
			Response:    text,
			Suggestions: []string{text},
			Confidence:  confidence(conf),
		}
	}

	var b strings.Builder
	if matched {
		b.WriteString(rule.reply)
	} else {
		b.WriteString(fallbackReply)
	}
	if req.ResponseLevel == types.ResponseLevelImmediate {
		if utterance != "" {
			fmt.Fprintf(&b, "\n\nLast customer line: %q", utterance)
		}
		if n := len(req.Context.Notes); n > 0 {
			fmt.Fprintf(&b, "\n\nYou have %d sticky note(s) on this call; the latest says: %s", n, req.Context.Notes[n-1].Content)
		}
		if doc := strings.TrimSpace(req.Context.DocumentNotes); doc != "" {
			fmt.Fprintf(&b, "\n\nDocument notes: %s", firstLine(doc))
		}
	}
	resp := types.ChatResponse{Response: b.String(), Confidence: confidence(fallbackConfidence)}
	if matched {
		resp.Suggestions = append([]string(nil), rule.suggestions...)
		resp.Confidence = confidence(rule.confidence)
	} else {
		resp.Suggestions = []string{fallbackSuggestion}
	}
	return resp
}

func (r *RuleResponder) match(text string) (responseRule, bool) {
	for _, rule := range r.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule, true
			}
		}
	}
	return responseRule{}, false
}

func latestCustomerUtterance(entries []types.TranscriptEntry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Speaker == types.SpeakerCustomer {
			return strings.TrimSpace(entries[i].Text)
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func confidence(v float64) *float64 {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	return &v
}
