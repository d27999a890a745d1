package detector

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/trustmesh/trustmesh/internal/analysis"
)

// Factory builds a built-in detector instance.
type Factory func() Detector

// Builtins maps built-in detector names to constructors. External
// detectors are configured, not listed here.
var Builtins = map[string]Factory{
	"linguistic-patterns": func() Detector { return &LinguisticDetector{} },
	"rating-consistency":  func() Detector { return &RatingConsistencyDetector{} },
	"template-similarity": func() Detector { return &TemplateSimilarityDetector{} },
	"burst-activity":      func() Detector { return &BurstActivityDetector{} },
}

// --- linguistic patterns ---

// LinguisticDetector scores promotional/exaggerated language patterns that
// correlate with fabricated reviews.
type LinguisticDetector struct{}

func (d *LinguisticDetector) Name() string        { return "linguistic-patterns" }
func (d *LinguisticDetector) Kind() analysis.Kind { return analysis.KindInternal }

var superlativeKeywords = []string{
	"best ever", "life changing", "life-changing", "amazing", "incredible",
	"perfect", "must buy", "must-buy", "highly recommend", "changed my life",
	"no words", "unbelievable", "flawless", "10/10",
}

var spamKeywords = []string{
	"discount code", "promo code", "click here", "free shipping",
	"limited time", "dm me", "check my profile", "visit my",
}

func (d *LinguisticDetector) Invoke(ctx context.Context, input analysis.Input) (analysis.DetectorResult, error) {
	text := strings.ToLower(input.Content)
	var evidence []string
	score := 0

	for _, kw := range superlativeKeywords {
		if strings.Contains(text, kw) {
			score += 10
			evidence = append(evidence, fmt.Sprintf("superlative phrase %q", kw))
		}
	}
	for _, kw := range spamKeywords {
		if strings.Contains(text, kw) {
			score += 20
			evidence = append(evidence, fmt.Sprintf("promotional phrase %q", kw))
		}
	}

	if n := strings.Count(input.Content, "!"); n >= 3 {
		score += 5 * (n - 2)
		evidence = append(evidence, fmt.Sprintf("%d exclamation marks", n))
	}

	if ratio := upperRatio(input.Content); ratio > 0.3 && len(input.Content) > 20 {
		score += 15
		evidence = append(evidence, fmt.Sprintf("%.0f%% of letters upper-case", ratio*100))
	}

	raw := map[string]any{"content_length": len(input.Content)}
	return newResult(d.Name(), d.Kind(), score, evidence, raw), nil
}

// upperRatio reports the fraction of letters that are upper-case.
func upperRatio(s string) float64 {
	letters, uppers := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(uppers) / float64(letters)
}

// --- rating consistency ---

// RatingConsistencyDetector flags a numeric rating that contradicts the
// tone of the text, a common pattern in paid review batches.
type RatingConsistencyDetector struct{}

func (d *RatingConsistencyDetector) Name() string        { return "rating-consistency" }
func (d *RatingConsistencyDetector) Kind() analysis.Kind { return analysis.KindInternal }

var positiveWords = []string{"great", "love", "excellent", "amazing", "perfect", "wonderful", "fantastic"}
var negativeWords = []string{"terrible", "awful", "broken", "refund", "waste", "horrible", "worst", "scam"}

func (d *RatingConsistencyDetector) Invoke(ctx context.Context, input analysis.Input) (analysis.DetectorResult, error) {
	if input.Rating == nil {
		return newResult(d.Name(), d.Kind(), 0, nil, map[string]any{"rating_present": false}), nil
	}

	text := strings.ToLower(input.Content)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(text, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			neg++
		}
	}

	rating := *input.Rating
	score := 0
	var evidence []string
	switch {
	case rating >= 4 && neg > pos:
		score = 40 + 10*neg
		evidence = append(evidence, fmt.Sprintf("high rating %.1f with %d negative tone markers", rating, neg))
	case rating <= 2 && pos > neg:
		score = 40 + 10*pos
		evidence = append(evidence, fmt.Sprintf("low rating %.1f with %d positive tone markers", rating, pos))
	}

	raw := map[string]any{"rating": rating, "positive_hits": pos, "negative_hits": neg}
	return newResult(d.Name(), d.Kind(), score, evidence, raw), nil
}

// --- template similarity ---

// TemplateSimilarityDetector compares the content against the account's
// history; near-identical phrasing across subjects suggests templated
// output.
type TemplateSimilarityDetector struct{}

func (d *TemplateSimilarityDetector) Name() string        { return "template-similarity" }
func (d *TemplateSimilarityDetector) Kind() analysis.Kind { return analysis.KindInternal }

func (d *TemplateSimilarityDetector) Invoke(ctx context.Context, input analysis.Input) (analysis.DetectorResult, error) {
	if len(input.History) == 0 || input.Content == "" {
		return newResult(d.Name(), d.Kind(), 0, nil, map[string]any{"history_records": len(input.History)}), nil
	}

	current := tokenSet(input.Content)
	best := 0.0
	matches := 0
	for _, rec := range input.History {
		if rec.Content == "" {
			continue
		}
		sim := jaccard(current, tokenSet(rec.Content))
		if sim > best {
			best = sim
		}
		if sim > 0.6 {
			matches++
		}
	}

	score := 0
	var evidence []string
	if best > 0.6 {
		score = int(best * 100)
		evidence = append(evidence,
			fmt.Sprintf("%.0f%% token overlap with a prior record", best*100))
	}
	if matches > 1 {
		score += 10 * (matches - 1)
		evidence = append(evidence, fmt.Sprintf("%d historical records exceed overlap threshold", matches))
	}

	raw := map[string]any{"best_similarity": best, "history_records": len(input.History)}
	return newResult(d.Name(), d.Kind(), score, evidence, raw), nil
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// --- burst activity ---

// BurstActivityDetector looks at the posting cadence in the account's
// history. Tight clusters of posts are typical of campaign accounts.
type BurstActivityDetector struct{}

func (d *BurstActivityDetector) Name() string        { return "burst-activity" }
func (d *BurstActivityDetector) Kind() analysis.Kind { return analysis.KindInternal }

const burstWindow = time.Hour

func (d *BurstActivityDetector) Invoke(ctx context.Context, input analysis.Input) (analysis.DetectorResult, error) {
	times := make([]time.Time, 0, len(input.History))
	for _, rec := range input.History {
		if !rec.PostedAt.IsZero() {
			times = append(times, rec.PostedAt)
		}
	}
	if len(times) < 2 {
		return newResult(d.Name(), d.Kind(), 0, nil, map[string]any{"timestamps": len(times)}), nil
	}

	// History arrives oldest first; find the densest trailing-hour cluster.
	maxBurst := 1
	for i := range times {
		count := 1
		for j := i + 1; j < len(times); j++ {
			if times[j].Sub(times[i]) <= burstWindow {
				count++
			}
		}
		if count > maxBurst {
			maxBurst = count
		}
	}

	score := 0
	var evidence []string
	if maxBurst >= 3 {
		score = 20 * (maxBurst - 1)
		evidence = append(evidence, fmt.Sprintf("%d posts within one hour", maxBurst))
	}

	raw := map[string]any{"max_burst": maxBurst, "timestamps": len(times)}
	return newResult(d.Name(), d.Kind(), score, evidence, raw), nil
}
