// Package heuristics implements the rule-based pre-scoring engine.
//
// Each extractor produces at most one weighted signal; the aggregate is the
// weighted mean of all fired signals, clamped to [0,100]. Analysis is a pure
// function of the input and the current word list: no network, no state.
package heuristics

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode"
)

// Signal is one named, weighted, scored observation about a submission.
type Signal struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Weight int    `json:"weight"`
	Detail string `json:"detail"`
}

// Analysis is the result of one heuristic pass.
type Analysis struct {
	Score   int      `json:"score"`
	Signals []Signal `json:"signals"`
}

// Input carries the raw submission fields the engine inspects.
type Input struct {
	Content     string
	AuthorName  string
	AuthorEmail string
	AuthorURL   string
}

// ScoreHook adjusts the aggregate score after signal aggregation. Hooks run
// in registration order; the result is clamped to [0,100] after each one.
type ScoreHook func(score int, signals []Signal, in Input) int

// Engine evaluates submissions against a reloadable spam-word list and the
// configured site locale.
type Engine struct {
	mu     sync.RWMutex
	words  []string
	locale string
	hooks  []ScoreHook
}

// NewEngine builds an Engine. words entries are matched case-insensitively
// as substrings; locale is the site language code (e.g. "en_US", "pt_BR").
func NewEngine(words []string, locale string) *Engine {
	e := &Engine{locale: locale}
	e.SetWordList(words)
	return e
}

// SetWordList atomically replaces the spam-word list.
func (e *Engine) SetWordList(words []string) {
	clean := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			clean = append(clean, w)
		}
	}
	e.mu.Lock()
	e.words = clean
	e.mu.Unlock()
}

// SetLocale atomically replaces the site language code.
func (e *Engine) SetLocale(locale string) {
	e.mu.Lock()
	e.locale = locale
	e.mu.Unlock()
}

// RegisterScoreHook appends a post-aggregation transform. Must be called
// before scoring starts; hooks are not synchronized against Analyze.
func (e *Engine) RegisterScoreHook(h ScoreHook) {
	e.hooks = append(e.hooks, h)
}

// Analyze runs every extractor and aggregates the fired signals.
func (e *Engine) Analyze(in Input) Analysis {
	var signals []Signal

	urls := extractURLs(in.Content)
	if len(urls) > 0 {
		signals = append(signals, Signal{
			Name:   "url_count",
			Score:  capScore(len(urls) * 15),
			Weight: 25,
			Detail: fmt.Sprintf("%d URL(s) found in comment", len(urls)),
		})
	}

	if found := e.matchSpamWords(in.Content + " " + in.AuthorName + " " + in.AuthorURL); len(found) > 0 {
		show := found
		if len(show) > 5 {
			show = show[:5]
		}
		signals = append(signals, Signal{
			Name:   "spam_words",
			Score:  capScore(len(found) * 25),
			Weight: 30,
			Detail: fmt.Sprintf("Spam words found: %s", strings.Join(show, ", ")),
		})
	}

	if ratio := repetitionRatio(in.Content); ratio > 0.3 {
		signals = append(signals, Signal{
			Name:   "repetition",
			Score:  capScore(int(ratio * 150)),
			Weight: 10,
			Detail: fmt.Sprintf("High character repetition: %.0f%%", ratio*100),
		})
	}

	length := len([]rune(in.Content))
	switch {
	case length < 5:
		signals = append(signals, Signal{
			Name:   "too_short",
			Score:  40,
			Weight: 10,
			Detail: fmt.Sprintf("Very short comment: %d characters", length),
		})
	case length > 5000:
		signals = append(signals, Signal{
			Name:   "too_long",
			Score:  30,
			Weight: 5,
			Detail: fmt.Sprintf("Very long comment: %d characters", length),
		})
	}

	if score := emailScore(in.AuthorEmail); score > 0 {
		signals = append(signals, Signal{
			Name:   "email_suspicious",
			Score:  score,
			Weight: 10,
			Detail: "Suspicious email domain",
		})
	}

	// An author-supplied URL is a strong indicator on its own: most
	// legitimate commenters don't include one.
	if in.AuthorURL != "" {
		signals = append(signals, Signal{
			Name:   "has_url",
			Score:  40,
			Weight: 15,
			Detail: "Author provided a URL (common spam tactic for link promotion)",
		})
	}

	if authorNameURLPattern.MatchString(in.AuthorName) {
		signals = append(signals, Signal{
			Name:   "author_name_url",
			Score:  80,
			Weight: 15,
			Detail: "Author name contains URL-like text",
		})
	}

	if ratio := uppercaseRatio(in.Content); ratio > 0.7 && length > 20 {
		signals = append(signals, Signal{
			Name:   "all_caps",
			Score:  50,
			Weight: 5,
			Detail: fmt.Sprintf("Excessive caps: %.0f%%", ratio*100),
		})
	}

	if score := injectionScore(in.Content); score > 0 {
		signals = append(signals, Signal{
			Name:   "prompt_injection",
			Score:  score,
			Weight: 20,
			Detail: "Potential prompt injection patterns detected",
		})
	}

	if detail := e.languageMismatch(in.Content); detail != "" {
		signals = append(signals, Signal{
			Name:   "language_mismatch",
			Score:  70,
			Weight: 20,
			Detail: detail,
		})
	}

	if detail := scriptMismatch(in.AuthorName, in.AuthorEmail); detail != "" {
		signals = append(signals, Signal{
			Name:   "name_email_mismatch",
			Score:  65,
			Weight: 12,
			Detail: detail,
		})
	}

	if detail := brandNameAuthor(in.AuthorName); detail != "" {
		signals = append(signals, Signal{
			Name:   "brand_name_author",
			Score:  75,
			Weight: 15,
			Detail: detail,
		})
	}

	praise := genericPraise(in.Content)
	if praise != "" {
		signals = append(signals, Signal{
			Name:   "generic_praise",
			Score:  60,
			Weight: 10,
			Detail: praise,
		})
	}

	// Author URL plus template praise: the comment exists solely to carry
	// the link.
	if in.AuthorURL != "" && praise != "" {
		signals = append(signals, Signal{
			Name:   "url_with_generic_praise",
			Score:  90,
			Weight: 25,
			Detail: "Generic praise + author URL: comment exists solely to promote the link",
		})
	}

	score := weightedScore(signals)
	for _, h := range e.hooks {
		score = clamp(h(score, signals, in))
	}

	return Analysis{Score: score, Signals: signals}
}

// FormatForPrompt renders the fired signals as plain-text bullets for use
// as model context. Used verbatim in the user prompt.
func FormatForPrompt(a Analysis) string {
	if len(a.Signals) == 0 {
		return "No suspicious patterns detected by pre-analysis."
	}
	lines := make([]string, 0, len(a.Signals))
	for _, s := range a.Signals {
		lines = append(lines, fmt.Sprintf("- %s (signal score: %d/100)", s.Detail, s.Score))
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) matchSpamWords(text string) []string {
	text = strings.ToLower(text)
	e.mu.RLock()
	defer e.mu.RUnlock()

	var found []string
	for _, w := range e.words {
		if strings.Contains(text, w) {
			found = append(found, w)
		}
	}
	return found
}

// CountURLs returns the number of distinct URL-like substrings in content.
func CountURLs(content string) int {
	return len(extractURLs(content))
}

func extractURLs(content string) []string {
	seen := map[string]struct{}{}
	var urls []string
	for _, m := range urlPattern.FindAllString(content, -1) {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			urls = append(urls, m)
		}
	}
	for _, m := range bareURLPattern.FindAllString(content, -1) {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			urls = append(urls, m)
		}
	}
	return urls
}

func repetitionRatio(content string) float64 {
	runes := []rune(content)
	if len(runes) < 10 {
		return 0
	}
	repeated := 0
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			repeated++
		}
	}
	return float64(repeated) / float64(len(runes))
}

func emailScore(email string) int {
	if email == "" {
		return 30
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return 30
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], strings.ToLower(email[at+1:])

	if _, ok := disposableDomains[domain]; ok {
		return 70
	}
	if len(local) > 20 && numericRunPattern.MatchString(local) {
		return 40
	}
	return 0
}

func uppercaseRatio(content string) float64 {
	var alpha, upper int
	for _, r := range content {
		if r >= 'a' && r <= 'z' {
			alpha++
		} else if r >= 'A' && r <= 'Z' {
			alpha++
			upper++
		}
	}
	if alpha < 10 {
		return 0
	}
	return float64(upper) / float64(alpha)
}

func injectionScore(content string) int {
	score := 0
	for _, p := range injectionPatterns {
		if p.MatchString(content) {
			score += 30
		}
	}
	return capScore(score)
}

func (e *Engine) languageMismatch(content string) string {
	e.mu.RLock()
	locale := e.locale
	e.mu.RUnlock()
	siteEnglish := strings.HasPrefix(locale, "en")

	words := wordSplitPattern.Split(strings.ToLower(content), -1)
	var total, english int
	for _, w := range words {
		if w == "" {
			continue
		}
		total++
		if _, ok := englishFunctionWords[w]; ok {
			english++
		}
	}
	if total < 5 {
		return ""
	}

	ratio := float64(english) / float64(total)
	commentEnglish := ratio > 0.15

	if !siteEnglish && commentEnglish {
		return fmt.Sprintf("Comment appears to be in English but site language is %s", e.locale)
	}
	if siteEnglish && !commentEnglish && ratio < 0.05 {
		return fmt.Sprintf("Comment appears to be non-English but site language is %s", e.locale)
	}
	return ""
}

func scriptMismatch(author, email string) string {
	if author == "" || email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	local := email[:at]
	if !latinLocalPattern.MatchString(local) {
		return ""
	}

	nonLatin := countRunesIn(author, unicode.Cyrillic) >= 2 ||
		countRunesIn(author, unicode.Han) >= 2 ||
		countRunesIn(author, unicode.Hiragana) >= 2 ||
		countRunesIn(author, unicode.Katakana) >= 2 ||
		countRunesIn(author, unicode.Hangul) >= 2 ||
		countRunesIn(author, unicode.Arabic) >= 2

	if nonLatin {
		return "Author name uses non-Latin script but email is Latin-only"
	}
	return ""
}

func countRunesIn(s string, table *unicode.RangeTable) int {
	n := 0
	for _, r := range s {
		if unicode.Is(table, r) {
			n++
		}
	}
	return n
}

func brandNameAuthor(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return ""
	}

	words := strings.Fields(author)
	if len(words) >= 4 {
		return fmt.Sprintf("Author name has %d words (possible keyword stuffing)", len(words))
	}

	for _, p := range commercialNamePatterns {
		if p.MatchString(author) {
			return "Author name contains commercial/spam keywords"
		}
	}

	// Alphanumeric brand codes checked per word: "LK21", "X3bet", "Site123".
	for _, w := range words {
		if brandCodePattern.MatchString(w) || numericBrandPattern.MatchString(w) {
			return fmt.Sprintf("Author name contains brand/code pattern: %s", w)
		}
	}
	return ""
}

func genericPraise(content string) string {
	if len([]rune(content)) < 15 {
		return ""
	}
	lower := strings.ToLower(content)

	var found []string
	for _, phrase := range genericPraisePhrases {
		if strings.Contains(lower, phrase) {
			found = append(found, phrase)
		}
	}
	if len(found) < 2 {
		return ""
	}
	show := found
	if len(show) > 3 {
		show = show[:3]
	}
	return fmt.Sprintf("Multiple generic praise phrases: %s", strings.Join(show, ", "))
}

func weightedScore(signals []Signal) int {
	if len(signals) == 0 {
		return 0
	}
	var sum, weight int
	for _, s := range signals {
		sum += s.Score * s.Weight
		weight += s.Weight
	}
	if weight == 0 {
		return 0
	}
	return clamp(int(float64(sum)/float64(weight) + 0.5))
}

func capScore(n int) int {
	if n > 100 {
		return 100
	}
	return n
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
