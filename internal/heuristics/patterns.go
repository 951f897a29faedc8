package heuristics

import "regexp"

// Compiled pattern tables used by the signal extractors. All matching is
// case-insensitive; phrase lists are stored lowercase and looked up against
// lowercased input.

var (
	urlPattern     = regexp.MustCompile(`(?i)https?://[^\s<>"']+`)
	bareURLPattern = regexp.MustCompile(`(?i)\b(?:www\.)[a-zA-Z0-9\-]+(?:\.[a-zA-Z]{2,})+`)

	authorNameURLPattern = regexp.MustCompile(`(?i)https?:|www\.|\.com|\.net|\.org`)

	latinLocalPattern  = regexp.MustCompile(`^[a-zA-Z0-9._+\-]+$`)
	numericRunPattern  = regexp.MustCompile(`[0-9]{5,}`)
	brandCodePattern   = regexp.MustCompile(`^[A-Za-z]+\d{2,}$`)
	numericBrandPattern = regexp.MustCompile(`^\d+[A-Za-z]+\d*$`)

	wordSplitPattern = regexp.MustCompile(`[\s\p{P}]+`)
)

// injectionPatterns match attempts to steer the downstream model through
// the submission text itself.
var injectionPatterns = []*regexp.Regexp{
	// Direct instruction override attempts.
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|directives?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?)`),
	// Role-play / persona manipulation.
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s`),
	regexp.MustCompile(`(?i)act\s+as\s+(a|an|the|if)\s`),
	regexp.MustCompile(`(?i)pretend\s+(you\s+are|to\s+be)\s`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s*:\s`),
	// Output manipulation.
	regexp.MustCompile(`(?i)respond\s+with\s+(only|just|exactly)\s`),
	regexp.MustCompile(`(?i)output\s+(only|just|exactly)\s`),
	regexp.MustCompile(`(?i)your\s+(new\s+)?task\s+is\s`),
	regexp.MustCompile(`(?i)return\s+a?\s*score\s+of\s+\d`),
	// JSON manipulation attempts.
	regexp.MustCompile(`(?i)"score"\s*:\s*\d`),
	regexp.MustCompile(`(?i)\{\s*"score"\s*:`),
}

// commercialNamePatterns flag author names built from SEO, gambling,
// piracy or adult keywords instead of a human name.
var commercialNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(buy|cheap|discount|free|best|top|online|shop|store|deal|offer|price)\b`),
	regexp.MustCompile(`(?i)\b(seo|backlink|ranking|index|serp|marketing|agency|service)\b`),
	regexp.MustCompile(`(?i)\b(loan|casino|bet|gambling|forex|crypto|trading|invest)\b`),
	regexp.MustCompile(`(?i)\b(pill|drug|pharmacy|viagra|cialis|supplement)\b`),
	regexp.MustCompile(`(?i)\b(download|watch|stream|movie|film|episode)\b`),
	// Gambling / lottery terms common in Indonesian-language spam waves.
	regexp.MustCompile(`(?i)\b(lotto|togel|paito|slot|jackpot|gacor|prediksi|bocoran|pengeluaran|keluaran|toto|result)\b`),
	regexp.MustCompile(`(?i)\b(live\s*draw|prize|pools?|angka|bandar|agen|taruhan|judi)\b`),
	// Piracy / streaming terms.
	regexp.MustCompile(`(?i)\b(layarkaca|nonton|drakor|bioskop|subtitle|indoxxi|ganool|rebahin)\b`),
	// Adult terms.
	regexp.MustCompile(`(?i)\b(xxx|porn|sex|adult|nude|webcam|onlyfans|escort|hookup)\b`),
}

// disposableDomains are throwaway mail providers that legitimate
// commenters rarely use.
var disposableDomains = map[string]struct{}{
	"mailinator.com":         {},
	"guerrillamail.com":      {},
	"tempmail.com":           {},
	"throwaway.email":        {},
	"yopmail.com":            {},
	"sharklasers.com":        {},
	"guerrillamailblock.com": {},
	"grr.la":                 {},
	"dispostable.com":        {},
	"trashmail.com":          {},
	"temp-mail.org":          {},
}

// englishFunctionWords appear in nearly all English prose; their frequency
// is used as a cheap language estimate for the mismatch signal.
var englishFunctionWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "been": {},
	"this": {}, "that": {}, "with": {}, "will": {}, "your": {},
	"from": {}, "they": {}, "were": {}, "said": {}, "each": {},
	"which": {}, "their": {}, "would": {}, "there": {}, "about": {},
	"could": {}, "other": {},
}

// genericPraisePhrases are comment-template phrases mass-mailed by link
// spammers. Two or more distinct matches are required before the signal
// fires; one phrase alone is common in genuine comments.
var genericPraisePhrases = []string{
	"fantastic resource",
	"great article",
	"wonderful post",
	"amazing blog",
	"excellent write-up",
	"keep up the good work",
	"keep up the great work",
	"i'm definitely bookmarking",
	"i am definitely bookmarking",
	"bookmarking this",
	"everything is very open",
	"clear clarification",
	"clear explanation of",
	"very informative article",
	"i needed to thank you",
	"just wanted to say",
	"stumbled upon this",
	"i stumbled upon",
	"very nice post",
	"nice post. i learn",
	"magnificent website",
	"very good article",
	"incredible article",
	"pretty section of content",
	"certainly a lot to learn",
	"much appreciated",
	"i will bookmark your",
	"looking forward to more",
	"you have made some decent points",
	"you made some good points",
	"i have been surfing on-line",
	"i have been surfing online",
	"i have been browsing on-line",
	"i have been browsing online",
	"your site might be having browser compatibility",
	"your website might be having browser compatibility",
	"your blog might be having browser compatibility",
	"i do not know who you are but",
	"i think this is among the most",
	"appreciation to my father",
	"i think your site might be having",
	"what a information of un-ambiguity",
	"somebody with a little more knowledge",
	"this is the right site for everyone",
	"this is the right website for everyone",
	"magnificent goods from you",
	"i was recommended this website",
	"i was suggested this website",
	"i just could not go away your website",
	"i just could not leave your site",
}

// DefaultSpamWords seeds the configurable word list on first run.
var DefaultSpamWords = []string{
	"buy now",
	"click here",
	"free money",
	"earn money",
	"make money online",
	"work from home",
	"casino",
	"poker",
	"lottery",
	"viagra",
	"cialis",
	"pharmacy",
	"cheap pills",
	"diet pills",
	"weight loss",
	"crypto",
	"bitcoin investment",
	"forex trading",
	"seo services",
	"backlinks",
	"link building",
	"payday loan",
	"adult content",
	"xxx",
	"porn",
	"dating site",
	"meet singles",
}
