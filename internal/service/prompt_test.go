package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/alexandreamato/spamanvil/internal/entity"
	"github.com/alexandreamato/spamanvil/internal/heuristics"
)

const fullTemplate = `Language: {site_language}
Title: {post_title}
Excerpt: {post_excerpt}
Author: {author_name} <{author_email}> {author_url}
Has URL: {author_has_url}
URL count: {url_count}
Signals:
{heuristic_data}
Pre-score: {heuristic_score}
<comment_data>
{comment_content}
</comment_data>`

func TestPromptBuildSubstitution(t *testing.T) {
	settings := defaultStubSettings()
	settings.userPrompt = fullTemplate
	settings.language = "pt_BR"
	b := NewPromptBuilder(settings, NewHooks())

	sub := &entity.Submission{
		AuthorName:  "Ana",
		AuthorEmail: "ana@example.com",
		AuthorURL:   "https://ana.example.com",
		Content:     "Visit https://spam.example.com now",
		PostTitle:   "Post title",
		PostExcerpt: "An excerpt",
	}
	analysis := heuristics.Analysis{
		Score:   42,
		Signals: []heuristics.Signal{{Name: "has_url", Score: 40, Weight: 15, Detail: "Author provided a URL"}},
	}

	system, user, err := b.Build(context.Background(), sub, analysis)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if system != "system prompt" {
		t.Errorf("system = %q", system)
	}
	for _, want := range []string{
		"Language: Portuguese (Brazil)",
		"Title: Post title",
		"Author: Ana <ana@example.com> https://ana.example.com",
		"Has URL: YES — be more critical of this comment",
		"URL count: 1",
		"Author provided a URL (signal score: 40/100)",
		"Pre-score: 42",
		"Visit https://spam.example.com now",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q\n%s", want, user)
		}
	}
	if strings.Contains(user, "{") {
		t.Errorf("unsubstituted placeholder left in prompt:\n%s", user)
	}
}

func TestPromptBuildNoURL(t *testing.T) {
	settings := defaultStubSettings()
	settings.userPrompt = "Has URL: {author_has_url}, count {url_count}"
	b := NewPromptBuilder(settings, NewHooks())

	_, user, err := b.Build(context.Background(), &entity.Submission{Content: "hello"}, heuristics.Analysis{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if user != "Has URL: No, count 0" {
		t.Errorf("user = %q", user)
	}
}

func TestPromptBuildTruncatesLongContent(t *testing.T) {
	settings := defaultStubSettings()
	settings.userPrompt = "{comment_content}"
	b := NewPromptBuilder(settings, NewHooks())

	long := strings.Repeat("a", maxContentLength+500)
	_, user, err := b.Build(context.Background(), &entity.Submission{Content: long}, heuristics.Analysis{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.HasSuffix(user, truncationMarker) {
		t.Error("truncation marker missing")
	}
	if len(user) != maxContentLength+len(truncationMarker) {
		t.Errorf("user length = %d", len(user))
	}
}

func TestPromptBuildTruncatesOnRuneBoundary(t *testing.T) {
	settings := defaultStubSettings()
	settings.userPrompt = "{comment_content}"
	b := NewPromptBuilder(settings, NewHooks())

	// Multibyte content must be cut between runes, not mid-rune.
	long := strings.Repeat("日", maxContentLength+200)
	_, user, err := b.Build(context.Background(), &entity.Submission{Content: long}, heuristics.Analysis{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !utf8.ValidString(user) {
		t.Fatal("user prompt contains invalid UTF-8 after truncation")
	}
	if !strings.HasSuffix(user, truncationMarker) {
		t.Error("truncation marker missing")
	}
	body := strings.TrimSuffix(user, truncationMarker)
	if got := utf8.RuneCountInString(body); got != maxContentLength {
		t.Errorf("truncated body = %d runes, want %d", got, maxContentLength)
	}
}

func TestPromptHooksApplied(t *testing.T) {
	settings := defaultStubSettings()
	settings.userPrompt = "base"
	hooks := NewHooks()
	hooks.RegisterPromptHook(func(system, user string, _ *entity.Submission) (string, string) {
		return system + " one", user + " one"
	})
	hooks.RegisterPromptHook(func(system, user string, _ *entity.Submission) (string, string) {
		return system + " two", user + " two"
	})
	b := NewPromptBuilder(settings, hooks)

	system, user, err := b.Build(context.Background(), &entity.Submission{Content: "x"}, heuristics.Analysis{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if system != "system prompt one two" {
		t.Errorf("system = %q", system)
	}
	if user != "base one two" {
		t.Errorf("user = %q", user)
	}
}

func TestLanguageName(t *testing.T) {
	cases := map[string]string{
		"en_US": "English (US)",
		"pt_BR": "Portuguese (Brazil)",
		"ja":    "Japanese",
		"es_CL": "Spanish",
		"en_NZ": "English",
		"xx_YY": "xx_YY",
	}
	for locale, want := range cases {
		if got := languageName(locale); got != want {
			t.Errorf("languageName(%q) = %q, want %q", locale, got, want)
		}
	}
}
