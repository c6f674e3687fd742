package email

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/llm"
)

const (
	maxProfessors   = 10
	maxNameParts    = 4
	extractTextCap  = 12000
	extractMaxToken = 150
)

// ExtractProfessors pulls faculty names out of scraped lab text. The LLM
// path is tried first; a title-prefix regex covers the failure case.
func ExtractProfessors(ctx context.Context, client llm.Client, text string) []string {
	if text == "" {
		return nil
	}
	if runes := []rune(text); len(runes) > extractTextCap {
		text = string(runes[:extractTextCap])
	}

	out, err := client.Complete(ctx, llm.Request{
		System:    professorExtractPrompt,
		Prompt:    text,
		MaxTokens: extractMaxToken,
	})
	if err == nil {
		if names := parseProfessorJSON(out); len(names) > 0 {
			return names
		}
	} else {
		zctx.From(ctx).Warn("Professor extraction failed", zap.Error(err))
	}

	return professorsFromRegex(text)
}

// parseProfessorJSON accepts either a bare array or an object whose first
// array value holds the names, then filters out non-name strings.
func parseProfessorJSON(raw string) []string {
	raw = llm.CleanJSON(raw)

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		var wrapped map[string][]string
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
			return nil
		}
		for _, v := range wrapped {
			names = v
			break
		}
	}

	seen := make(map[string]struct{})
	var cleaned []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || !unicode.IsUpper([]rune(n)[0]) || len(strings.Fields(n)) > maxNameParts {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		cleaned = append(cleaned, n)
		if len(cleaned) == maxProfessors {
			break
		}
	}
	return cleaned
}

var professorTitleRe = regexp.MustCompile(`\b(?:Prof\.?|Professor|Dr\.?)\s+([A-Z][a-z]+\s+[A-Z][a-z]+)\b`)

func professorsFromRegex(text string) []string {
	matches := professorTitleRe.FindAllStringSubmatch(text, -1)

	seen := make(map[string]struct{})
	var names []string
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
		if len(names) == maxProfessors {
			break
		}
	}
	return names
}
