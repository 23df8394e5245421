package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/example/pizzaplanet/pkg/models"
)

// Keyword lists in priority order. Confirmation runs before ordering so
// "yes, the margherita" is not read as a new order.
var (
	confirmKeywords        = []string{"yes", "confirm", "place order", "proceed", "go ahead", "okay", "do it"}
	trackKeywords          = []string{"track", "status", "where is", "my order", "check order", "delivery"}
	orderKeywords          = []string{"order", "buy", "get", "purchase", "want", "need", "i'll have"}
	menuKeywords           = []string{"menu", "show", "list", "options", "available", "what do you have"}
	greetingKeywords       = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "greetings", "howdy"}
	recommendationKeywords = []string{"recommend", "recommendation", "suggest", "suggestion", "popular", "best", "favorite", "favourite"}
	healthKeywords         = []string{"health", "healthcheck", "ping", "are you up", "are you alive", "uptime"}

	nonVegKeywords = []string{"non-veg", "non veg", "nonveg", "meat", "chicken", "pepperoni"}
	vegKeywords    = []string{"veg", "vegetarian", "veggie", "paneer"}
	spicyKeywords  = []string{"spicy", "hot", "spice"}
)

var (
	orderIDPattern = regexp.MustCompile(`(?i)\bORD-[0-9a-f]{8}\b`)
	sizePatterns   = []struct {
		re   *regexp.Regexp
		size models.Size
	}{
		{regexp.MustCompile(`\b(extra[ -]?large|xl)\b`), models.SizeExtraLarge},
		{regexp.MustCompile(`\blarge\b`), models.SizeLarge},
		{regexp.MustCompile(`\b(medium|regular)\b`), models.SizeMedium},
		{regexp.MustCompile(`\bsmall\b`), models.SizeSmall},
	}
	keywordCache = make(map[string]*regexp.Regexp)
)

func init() {
	for _, list := range [][]string{
		confirmKeywords, trackKeywords, orderKeywords, menuKeywords, greetingKeywords,
		recommendationKeywords, healthKeywords, nonVegKeywords, vegKeywords, spicyKeywords,
	} {
		for _, kw := range list {
			keywordCache[kw] = wordPattern(kw)
		}
	}
}

func wordPattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
}

func containsKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		re, ok := keywordCache[kw]
		if !ok {
			re = wordPattern(kw)
		}
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Fallback classifies with the keyword rules alone.
func Fallback(message string, terms []string) Result {
	text := normalize(message)
	name := extractName(text, terms)
	res := Result{
		ExtractedName: name,
		ExtractedSize: extractSize(text),
		OrderID:       ExtractOrderID(message),
		Source:        SourceFallback,
	}

	switch {
	case containsKeyword(text, confirmKeywords):
		res.Intent, res.Confidence = Confirm, 0.9
	case containsKeyword(text, trackKeywords) || (res.OrderID != "" && !containsKeyword(text, orderKeywords)):
		res.Intent, res.Confidence = Track, 0.8
	case containsKeyword(text, orderKeywords):
		res.Intent, res.Confidence = Order, 0.5
		if name != "" {
			res.Confidence = 0.8
		}
	case containsKeyword(text, menuKeywords):
		res.Intent, res.Confidence = Menu, 0.8
		res.Category = detectCategory(text)
	case containsKeyword(text, greetingKeywords):
		res.Intent, res.Confidence = Greeting, 0.7
	case containsKeyword(text, recommendationKeywords):
		res.Intent, res.Confidence = Recommendation, 0.7
		res.Preference = detectPreference(text)
	case containsKeyword(text, healthKeywords):
		res.Intent, res.Confidence = Health, 0.7
	default:
		res.Intent, res.Confidence = Casual, 0.6
	}
	res.Action = res.Intent.Action()
	return res
}

// ExtractOrderID finds an order id in free text and returns it in its
// canonical form.
func ExtractOrderID(message string) string {
	m := orderIDPattern.FindString(message)
	if m == "" {
		return ""
	}
	return "ORD-" + strings.ToLower(m[4:])
}

// extractName returns the longest menu term present as whole words.
func extractName(text string, terms []string) string {
	sorted := make([]string, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, t := range sorted {
		t = normalize(t)
		if t != "" && wordPattern(t).MatchString(text) {
			return t
		}
	}
	return ""
}

func extractSize(text string) models.Size {
	for _, p := range sizePatterns {
		if p.re.MatchString(text) {
			return p.size
		}
	}
	return ""
}

func detectCategory(text string) string {
	switch {
	case containsKeyword(text, nonVegKeywords):
		return string(models.CategoryNonVeg)
	case containsKeyword(text, vegKeywords):
		return string(models.CategoryVeg)
	}
	return "all"
}

func detectPreference(text string) string {
	switch {
	case containsKeyword(text, nonVegKeywords):
		return "non-veg"
	case containsKeyword(text, vegKeywords):
		return "veg"
	case containsKeyword(text, spicyKeywords):
		return "spicy"
	}
	return "popular"
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
