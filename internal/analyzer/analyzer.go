// Package analyzer classifies review text by sentiment and topic and
// scores how relevant each review is to a set of search keywords.
package analyzer

import (
	"regexp"
	"strings"
	"sync"

	snowballeng "github.com/kljensen/snowball/english"

	"review_scraper/internal/domain"
)

// wordPatterns caches the compiled whole-word pattern per keyword. The
// same keywords score against every review in a result set, so patterns
// compile once rather than per review.
var wordPatterns sync.Map // string -> *regexp.Regexp

func wordPattern(kw string) *regexp.Regexp {
	if re, ok := wordPatterns.Load(kw); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	wordPatterns.Store(kw, re)
	return re
}

// categoryOrder fixes the iteration order so annotations and breakdowns
// come out the same on every run.
var categoryOrder = []string{
	"assembly", "quality", "value", "size", "comfort", "delivery",
	"customer_service", "durability", "performance", "design", "features",
}

var criteriaKeywords = map[string][]string{
	"assembly": {
		"assembly", "assemble", "put together", "setup", "installation",
		"install", "build", "construction", "instructions", "manual",
		"easy to assemble", "hard to assemble", "difficult assembly",
		"setup process", "installation guide", "assembly time",
	},
	"quality": {
		"quality", "build quality", "material", "sturdy", "durable",
		"solid", "cheap", "flimsy", "well made", "construction",
		"materials", "finish", "craftsmanship", "workmanship",
		"premium", "high quality", "poor quality", "excellent quality",
	},
	"value": {
		"value", "price", "worth", "expensive", "cheap", "affordable",
		"money", "cost", "budget", "overpriced", "good deal",
		"bang for buck", "value for money", "cost effective",
		"reasonable price", "great value", "worth the money",
	},
	"size": {
		"size", "big", "small", "large", "compact", "spacious",
		"dimensions", "fit", "space", "room", "tiny", "huge",
		"perfect size", "too big", "too small", "fits perfectly",
		"space saving", "oversized", "undersized",
	},
	"comfort": {
		"comfort", "comfortable", "ergonomic", "soft", "firm",
		"cushion", "support", "padding", "cozy", "uncomfortable",
		"ergonomics", "back support", "lumbar support", "comfortable seating",
	},
	"delivery": {
		"delivery", "shipping", "arrived", "package", "packaging",
		"fast shipping", "slow delivery", "damaged", "box",
		"delivered", "received", "shipping time", "delivery speed",
		"well packaged", "damaged in shipping", "quick delivery",
	},
	"customer_service": {
		"customer service", "support", "help", "response", "staff",
		"representative", "helpful", "rude", "friendly", "contact",
		"service quality", "support team", "customer care",
		"responsive", "unhelpful", "professional service",
	},
	"durability": {
		"durability", "durable", "last", "lasting", "wear", "tear",
		"broke", "broken", "sturdy", "reliable", "falls apart",
		"long lasting", "holds up well", "wearing out", "breaking down",
		"built to last", "still working", "stopped working",
	},
	"performance": {
		"performance", "works", "working", "function", "functionality",
		"efficient", "effective", "fast", "slow", "responsive",
		"smooth operation", "performs well", "excellent performance",
		"poor performance", "works great", "not working",
	},
	"design": {
		"design", "style", "appearance", "look", "looks", "attractive",
		"beautiful", "ugly", "sleek", "modern", "stylish",
		"aesthetic", "good looking", "nice design", "elegant",
		"visually appealing", "design quality",
	},
	"features": {
		"features", "feature", "options", "functionality", "capabilities",
		"useful features", "great features", "missing features",
		"feature rich", "basic features", "advanced features",
	},
}

var categoryDescriptions = map[string]string{
	"assembly":         "Reviews about product assembly, setup, and installation",
	"quality":          "Reviews about build quality, materials, and construction",
	"value":            "Reviews about price, value for money, and cost",
	"size":             "Reviews about product size, dimensions, and fit",
	"comfort":          "Reviews about comfort, ergonomics, and feel",
	"delivery":         "Reviews about shipping, delivery, and packaging",
	"customer_service": "Reviews about customer support and service",
	"durability":       "Reviews about product longevity and durability",
	"performance":      "Reviews about how well the product works and performs",
	"design":           "Reviews about appearance, style, and aesthetics",
	"features":         "Reviews about product features and functionality",
}

var positiveWords = []string{
	"excellent", "amazing", "great", "love", "perfect", "awesome",
	"fantastic", "wonderful", "brilliant", "outstanding", "superb",
	"recommend", "happy", "satisfied", "pleased", "impressed",
}

var negativeWords = []string{
	"terrible", "awful", "hate", "horrible", "worst", "bad",
	"disappointed", "poor", "useless", "waste", "regret",
	"broken", "defective", "faulty", "cheap", "flimsy",
}

var wordRE = regexp.MustCompile(`\b\w+\b`)

// Analyzer holds the stemmed sentiment lexicons. Stemming the lexicon
// once up front lets inflected forms in review text ("loved",
// "recommended") hit the same entries as their base words.
type Analyzer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

func New() *Analyzer {
	a := &Analyzer{
		positive: make(map[string]struct{}, len(positiveWords)),
		negative: make(map[string]struct{}, len(negativeWords)),
	}
	for _, w := range positiveWords {
		a.positive[snowballeng.Stem(w, false)] = struct{}{}
	}
	for _, w := range negativeWords {
		a.negative[snowballeng.Stem(w, false)] = struct{}{}
	}
	return a
}

// stemTokens lowercases the text and returns the set of stemmed word
// tokens, with English stop words dropped.
func stemTokens(text string) map[string]struct{} {
	tokens := wordRE.FindAllString(strings.ToLower(text), -1)
	out := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if snowballeng.IsStopWord(tok) {
			continue
		}
		out[snowballeng.Stem(tok, false)] = struct{}{}
	}
	return out
}

// Sentiment labels text positive, negative, or neutral by counting how
// many distinct stems hit each lexicon. Ties and empty text are neutral.
func (a *Analyzer) Sentiment(text string) string {
	if text == "" {
		return domain.SentimentNeutral
	}
	var pos, neg int
	for stem := range stemTokens(text) {
		if _, ok := a.positive[stem]; ok {
			pos++
		}
		if _, ok := a.negative[stem]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// Categorize returns the criteria categories whose keywords appear in
// the text, in the fixed category order. A category matches at most once.
func (a *Analyzer) Categorize(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var cats []string
	for _, cat := range categoryOrder {
		for _, kw := range criteriaKeywords[cat] {
			if strings.Contains(lower, kw) {
				cats = append(cats, cat)
				break
			}
		}
	}
	return cats
}

// KeywordRelevance scores text against keywords on a 0..1 scale. Whole
// word matches count double, substring matches count single, and the
// total is normalized by the best possible score of two per keyword.
func (a *Analyzer) KeywordRelevance(text string, keywords []string) float64 {
	if text == "" || len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	var total int
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		exact := len(wordPattern(kw).FindAllString(lower, -1))
		partial := strings.Count(lower, kw) - exact
		total += exact*2 + partial
	}
	if len(strings.Fields(text)) == 0 {
		return 0
	}
	relevance := float64(total) / float64(len(keywords)*2)
	if relevance > 1 {
		relevance = 1
	}
	return relevance
}

// CategoryInfo describes one filterable category for API consumers.
type CategoryInfo struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Categories lists every supported category with a description and a
// few sample keywords.
func Categories() map[string]CategoryInfo {
	out := make(map[string]CategoryInfo, len(categoryOrder))
	for _, cat := range categoryOrder {
		kws := criteriaKeywords[cat]
		n := 4
		if len(kws) < n {
			n = len(kws)
		}
		out[cat] = CategoryInfo{
			Description: categoryDescriptions[cat],
			Keywords:    append([]string(nil), kws[:n]...),
		}
	}
	return out
}
