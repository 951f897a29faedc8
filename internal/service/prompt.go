package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/alexandreamato/spamanvil/internal/entity"
	"github.com/alexandreamato/spamanvil/internal/heuristics"
)

// maxContentLength bounds the submission body embedded in a prompt.
const maxContentLength = 5000

const truncationMarker = "\n[Content truncated at 5000 characters]"

// PromptBuilder fills the configured templates with submission fields and
// the heuristic analysis. Substitution is verbatim; the untrusted body is
// truncated and placed inside <comment_data> boundary tags by the
// template itself.
type PromptBuilder struct {
	settings Settings
	hooks    *Hooks
}

func NewPromptBuilder(settings Settings, hooks *Hooks) *PromptBuilder {
	return &PromptBuilder{settings: settings, hooks: hooks}
}

// Build returns the system and user prompts for one submission, after any
// registered prompt hooks.
func (b *PromptBuilder) Build(ctx context.Context, sub *entity.Submission, analysis heuristics.Analysis) (string, string, error) {
	system, err := b.settings.SystemPrompt(ctx)
	if err != nil {
		return "", "", err
	}
	template, err := b.settings.UserPrompt(ctx)
	if err != nil {
		return "", "", err
	}
	language, err := b.settings.SiteLanguage(ctx)
	if err != nil {
		return "", "", err
	}

	content := sub.Content
	if runes := []rune(content); len(runes) > maxContentLength {
		content = string(runes[:maxContentLength]) + truncationMarker
	}

	authorHasURL := "No"
	if sub.AuthorURL != "" {
		authorHasURL = "YES — be more critical of this comment"
	}

	replacer := strings.NewReplacer(
		"{site_language}", languageName(language),
		"{post_title}", sub.PostTitle,
		"{post_excerpt}", sub.PostExcerpt,
		"{author_name}", sub.AuthorName,
		"{author_email}", sub.AuthorEmail,
		"{author_url}", sub.AuthorURL,
		"{author_has_url}", authorHasURL,
		"{url_count}", strconv.Itoa(heuristics.CountURLs(sub.Content)),
		"{heuristic_data}", heuristics.FormatForPrompt(analysis),
		"{heuristic_score}", strconv.Itoa(analysis.Score),
		"{comment_content}", content,
	)
	user := replacer.Replace(template)

	system, user = b.hooks.applyPrompt(system, user, sub)
	return system, user, nil
}

var languageNames = map[string]string{
	"en_US": "English (US)",
	"en_GB": "English (UK)",
	"en_AU": "English (Australia)",
	"en_CA": "English (Canada)",
	"pt_BR": "Portuguese (Brazil)",
	"pt_PT": "Portuguese (Portugal)",
	"es_ES": "Spanish (Spain)",
	"es_MX": "Spanish (Mexico)",
	"es_AR": "Spanish (Argentina)",
	"fr_FR": "French (France)",
	"fr_CA": "French (Canada)",
	"de_DE": "German",
	"de_AT": "German (Austria)",
	"de_CH": "German (Switzerland)",
	"it_IT": "Italian",
	"nl_NL": "Dutch",
	"ru_RU": "Russian",
	"ja":    "Japanese",
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
	"ko_KR": "Korean",
	"ar":    "Arabic",
	"hi_IN": "Hindi",
	"tr_TR": "Turkish",
	"pl_PL": "Polish",
	"sv_SE": "Swedish",
	"da_DK": "Danish",
	"nb_NO": "Norwegian",
	"fi":    "Finnish",
	"he_IL": "Hebrew",
	"th":    "Thai",
	"vi":    "Vietnamese",
	"id_ID": "Indonesian",
	"uk":    "Ukrainian",
	"cs_CZ": "Czech",
	"el":    "Greek",
	"ro_RO": "Romanian",
	"hu_HU": "Hungarian",
}

var languagePrimary = map[string]string{
	"en": "English", "pt": "Portuguese", "es": "Spanish", "fr": "French",
	"de": "German", "it": "Italian", "nl": "Dutch", "ru": "Russian",
	"zh": "Chinese", "ko": "Korean", "hi": "Hindi", "tr": "Turkish",
	"pl": "Polish", "sv": "Swedish", "da": "Danish", "nb": "Norwegian",
	"he": "Hebrew", "id": "Indonesian", "cs": "Czech", "ro": "Romanian",
	"hu": "Hungarian",
}

// languageName renders a locale code for the prompt, falling back to a
// two-letter prefix match, then to the raw code.
func languageName(locale string) string {
	if name, ok := languageNames[locale]; ok {
		return name
	}
	if len(locale) >= 2 {
		prefix := locale[:2]
		if name, ok := languageNames[prefix]; ok {
			return name
		}
		if name, ok := languagePrimary[prefix]; ok {
			return name
		}
	}
	return locale
}
