package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/pizzaplanet/pkg/llm"
	"github.com/example/pizzaplanet/pkg/models"
	"go.uber.org/zap"
)

const defaultConfidence = 0.7

// Vocabulary supplies the menu terms the classifier recognizes.
type Vocabulary interface {
	Terms() []string
}

// Classifier asks the language model first and falls back to the keyword
// rules on any failure, including the timeout.
type Classifier struct {
	llm     llm.Client
	vocab   Vocabulary
	timeout time.Duration
	logger  *zap.Logger
}

func NewClassifier(client llm.Client, vocab Vocabulary, timeout time.Duration, logger *zap.Logger) *Classifier {
	if client == nil {
		client = llm.Disabled{}
	}
	return &Classifier{llm: client, vocab: vocab, timeout: timeout, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, message string, cctx Context) Result {
	terms := c.vocab.Terms()
	rules := Fallback(message, terms)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.llm.Generate(callCtx, buildPrompt(message, cctx, terms))
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			c.logger.Warn("Intent model unavailable, using rules",
				zap.String("user_id", cctx.UserID), zap.Error(err))
		}
		return rules
	}

	res, err := ParseResponse(raw)
	if err != nil {
		c.logger.Warn("Discarding malformed intent output",
			zap.String("user_id", cctx.UserID), zap.Error(err))
		return rules
	}

	// Item, size and order id always come from the message itself.
	if rules.ExtractedName != "" || !knownTerm(res.ExtractedName, terms) {
		res.ExtractedName = rules.ExtractedName
	}
	if rules.ExtractedSize != "" || res.ExtractedSize == "" {
		res.ExtractedSize = rules.ExtractedSize
	}
	res.OrderID = rules.OrderID
	if res.Intent == Menu && res.Category == "" {
		res.Category = rules.Category
		if res.Category == "" {
			res.Category = detectCategory(normalize(message))
		}
	}
	if res.Intent == Recommendation && res.Preference == "" {
		res.Preference = detectPreference(normalize(message))
	}

	c.logger.Debug("Intent classified",
		zap.String("user_id", cctx.UserID),
		zap.String("intent", string(res.Intent)),
		zap.Float64("confidence", res.Confidence))
	return res
}

type modelAnswer struct {
	Intent     string   `json:"intent"`
	Confidence *float64 `json:"confidence"`
	Category   string   `json:"category"`
	Name       string   `json:"name"`
	Size       string   `json:"size"`
	Preference string   `json:"preference"`
}

// ParseResponse decodes model output that may be wrapped in code fences or
// prose. The intent must be in the taxonomy.
func ParseResponse(raw string) (Result, error) {
	body := stripFences(raw)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return Result{}, errors.New("no JSON object in model output")
	}

	var ans modelAnswer
	if err := json.Unmarshal([]byte(body[start:end+1]), &ans); err != nil {
		return Result{}, fmt.Errorf("failed to decode model output: %w", err)
	}
	in, ok := Parse(strings.ToLower(strings.TrimSpace(ans.Intent)))
	if !ok {
		return Result{}, fmt.Errorf("unknown intent %q", ans.Intent)
	}

	res := Result{
		Intent:        in,
		Action:        in.Action(),
		ExtractedName: normalize(ans.Name),
		Preference:    strings.ToLower(strings.TrimSpace(ans.Preference)),
		Confidence:    defaultConfidence,
		Source:        SourceLLM,
	}
	if ans.Confidence != nil {
		res.Confidence = clamp(*ans.Confidence)
	}
	if size, ok := models.ParseSize(ans.Size); ok {
		res.ExtractedSize = size
	}
	if cat, ok := models.ParseCategory(ans.Category); ok {
		res.Category = string(cat)
	} else if strings.EqualFold(strings.TrimSpace(ans.Category), "all") {
		res.Category = "all"
	}
	return res, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, "```")
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func knownTerm(name string, terms []string) bool {
	for _, t := range terms {
		if t == name {
			return true
		}
	}
	return false
}

func buildPrompt(message string, cctx Context, terms []string) string {
	var sb strings.Builder
	sb.WriteString("You classify messages sent to Pizza Planet, a pizza delivery assistant.\n")
	sb.WriteString("Menu items and aliases: ")
	sb.WriteString(strings.Join(terms, ", "))
	sb.WriteString("\nIntents:\n")
	sb.WriteString("- greeting: hello or welcome\n")
	sb.WriteString("- menu: wants to see the menu (category: all, veg or non-veg)\n")
	sb.WriteString("- order: wants to order a pizza (name, size)\n")
	sb.WriteString("- confirm: agrees to place the order already suggested\n")
	sb.WriteString("- track: asks about an existing order or delivery\n")
	sb.WriteString("- recommendation: asks for suggestions (preference: veg, non-veg, spicy, popular)\n")
	sb.WriteString("- health: asks whether the service is up\n")
	sb.WriteString("- casual: anything else\n")
	if cctx.UserName != "" {
		fmt.Fprintf(&sb, "Customer name: %s\n", cctx.UserName)
	}
	fmt.Fprintf(&sb, "Message: %q\n", message)
	sb.WriteString(`Reply with ONLY a JSON object: {"intent": "...", "confidence": 0.0, "category": "", "name": "", "size": "", "preference": ""}`)
	return sb.String()
}
