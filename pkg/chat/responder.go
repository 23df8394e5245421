package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/pizzaplanet/pkg/intent"
	"github.com/example/pizzaplanet/pkg/llm"
	"go.uber.org/zap"
)

// Facts is everything the model may say. Template is the deterministic
// reply used whenever the model fails or drifts.
type Facts struct {
	Intent   intent.Intent
	Message  string
	UserName string
	Template string
	Details  []string
	// OrderID must appear verbatim in a phrased reply.
	OrderID string
}

// Responder phrases replies with the language model.
type Responder struct {
	llm     llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewResponder(client llm.Client, timeout time.Duration, logger *zap.Logger) *Responder {
	if client == nil {
		client = llm.Disabled{}
	}
	return &Responder{llm: client, timeout: timeout, logger: logger}
}

func (r *Responder) Phrase(ctx context.Context, f Facts) string {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.llm.Generate(ctx, phrasePrompt(f))
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			r.logger.Warn("Reply phrasing failed, using template",
				zap.String("intent", string(f.Intent)), zap.Error(err))
		}
		return f.Template
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return f.Template
	}
	if f.OrderID != "" && !strings.Contains(text, f.OrderID) {
		r.logger.Warn("Phrased reply dropped the order id, using template",
			zap.String("order_id", f.OrderID))
		return f.Template
	}
	return text
}

func phrasePrompt(f Facts) string {
	var sb strings.Builder
	sb.WriteString("You are the friendly assistant of Pizza Planet. Rewrite the reply below for the customer. ")
	sb.WriteString("Keep it short, warm and use a pizza emoji or two. ")
	sb.WriteString("Use only the facts given. Never invent order ids, prices, items or times.\n")
	if f.UserName != "" {
		fmt.Fprintf(&sb, "Customer name: %s\n", f.UserName)
	}
	if f.Message != "" {
		fmt.Fprintf(&sb, "Customer said: %q\n", f.Message)
	}
	fmt.Fprintf(&sb, "Intent: %s\n", f.Intent)
	if len(f.Details) > 0 {
		sb.WriteString("Facts:\n")
		for _, d := range f.Details {
			fmt.Fprintf(&sb, "- %s\n", d)
		}
	}
	if f.OrderID != "" {
		fmt.Fprintf(&sb, "The reply must contain the order id %s exactly.\n", f.OrderID)
	}
	fmt.Fprintf(&sb, "Reply to rewrite: %s\n", f.Template)
	return sb.String()
}
