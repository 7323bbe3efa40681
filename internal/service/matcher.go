package service

import (
	"log/slog"
	"math"
	"strings"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/logging"
)

// MatcherConfig holds the fuzzy matching thresholds.
type MatcherConfig struct {
	// WordCountTolerance is the largest word-count difference still compared.
	WordCountTolerance int
	// MinLengthRatio is the shortest/longest word length ratio below which
	// two words are never typo-similar.
	MinLengthRatio float64
	// MinCharMatchRate is the same-position character share two words need.
	MinCharMatchRate float64
	// MinItemMatchRate is the share of words that must be exact or similar.
	MinItemMatchRate float64
	// MinExactWordShare is the share of words that must match exactly.
	MinExactWordShare float64
}

func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		WordCountTolerance: 1,
		MinLengthRatio:     0.8,
		MinCharMatchRate:   0.75,
		MinItemMatchRate:   0.8,
		MinExactWordShare:  0.5,
	}
}

func (c MatcherConfig) normalize() MatcherConfig {
	def := DefaultMatcherConfig()
	if c.WordCountTolerance < 0 {
		c.WordCountTolerance = def.WordCountTolerance
	}
	if c.MinLengthRatio <= 0 || c.MinLengthRatio > 1 {
		c.MinLengthRatio = def.MinLengthRatio
	}
	if c.MinCharMatchRate <= 0 || c.MinCharMatchRate > 1 {
		c.MinCharMatchRate = def.MinCharMatchRate
	}
	if c.MinItemMatchRate <= 0 || c.MinItemMatchRate > 1 {
		c.MinItemMatchRate = def.MinItemMatchRate
	}
	if c.MinExactWordShare <= 0 || c.MinExactWordShare > 1 {
		c.MinExactWordShare = def.MinExactWordShare
	}
	return c
}

// Matcher checks requested items against a menu, tolerating typos inside
// words but not reordered, dropped or substituted words.
type Matcher struct {
	cfg    MatcherConfig
	logger *slog.Logger
}

func NewMatcher(cfg MatcherConfig, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Matcher{cfg: cfg.normalize(), logger: logger}
}

// CheckAvailability splits requested into available and missing items.
// Both lists keep request order and the caller's spelling.
func (m *Matcher) CheckAvailability(menuItems, requested []string) domain.MatchResult {
	menu := make([]string, 0, len(menuItems))
	exact := make(map[string]struct{}, len(menuItems))
	for _, item := range menuItems {
		n := normalizeItem(item)
		if n == "" {
			continue
		}
		if _, dup := exact[n]; dup {
			continue
		}
		exact[n] = struct{}{}
		menu = append(menu, n)
	}

	result := domain.MatchResult{Available: []string{}, Missing: []string{}}
	for _, item := range requested {
		if m.isAvailable(normalizeItem(item), menu, exact) {
			result.Available = append(result.Available, item)
		} else {
			result.Missing = append(result.Missing, item)
		}
	}
	return result
}

func (m *Matcher) isAvailable(requested string, menu []string, exact map[string]struct{}) bool {
	if requested == "" {
		return false
	}
	if _, ok := exact[requested]; ok {
		return true
	}
	for _, candidate := range menu {
		if m.IsSimilarItem(requested, candidate) {
			m.logger.Debug("fuzzy item match", "requested", requested, "menu_item", candidate)
			return true
		}
	}
	return false
}

// IsSimilarItem compares two normalized item names word by word. Any
// position that is neither exact nor typo-similar rejects the pair.
func (m *Matcher) IsSimilarItem(a, b string) bool {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	diff := len(wordsA) - len(wordsB)
	if diff < 0 {
		diff = -diff
	}
	if diff > m.cfg.WordCountTolerance {
		return false
	}

	totalWords := max(len(wordsA), len(wordsB))
	exactMatches, similarMatches := 0, 0
	for i := range min(len(wordsA), len(wordsB)) {
		switch {
		case wordsA[i] == wordsB[i]:
			exactMatches++
		case m.AreWordsSimilar(wordsA[i], wordsB[i]):
			similarMatches++
		default:
			return false
		}
	}

	rate := float64(exactMatches+similarMatches) / float64(totalWords)
	requiredExact := int(math.Ceil(float64(totalWords) * m.cfg.MinExactWordShare))
	return rate >= m.cfg.MinItemMatchRate && exactMatches >= requiredExact
}

// AreWordsSimilar reports whether two words differ only by a typo. The
// character rate counts same-position matches over the shorter word and
// divides by the longer one, so a trailing insertion costs one character.
func (m *Matcher) AreWordsSimilar(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	shorter, longer := len(ra), len(rb)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if longer == 0 {
		return true
	}
	if float64(shorter)/float64(longer) < m.cfg.MinLengthRatio {
		return false
	}

	matches := 0
	for i := range shorter {
		if ra[i] == rb[i] {
			matches++
		}
	}
	return float64(matches)/float64(longer) >= m.cfg.MinCharMatchRate
}

// normalizeItem lowercases, trims and collapses whitespace runs.
func normalizeItem(item string) string {
	return strings.Join(strings.Fields(strings.ToLower(item)), " ")
}
