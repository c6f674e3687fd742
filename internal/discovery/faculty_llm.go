package discovery

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/llm"
)

const facultyPageTextCap = 7000

// extractFacultyLLM asks the suggester model who runs the lab. The first
// attempt gives it only the URL; if that yields nothing, the page text is
// scraped and handed over for a second pass.
func (s *Service) extractFacultyLLM(ctx context.Context, labURL, college string) []Faculty {
	if s.suggester == nil {
		return nil
	}
	lg := zctx.From(ctx)

	prompt := "You are an expert assistant specialised in analysing university lab webpages. " +
		"Given the URL of a research lab, identify the faculty (professors / PIs) associated with it.\n" +
		"Return ONLY valid results in strict JSON format as an array of objects with exactly two keys: 'name' and 'email'. " +
		"If an e-mail address is not visible, set 'email' to an empty string.\n" +
		"Example output: [{\"name\": \"Jane Doe\", \"email\": \"jdoe@university.edu\"}]\n\n" +
		"Lab URL: " + labURL + "\n"
	if college != "" {
		prompt += "University: " + college + "\n"
	}
	prompt += "Respond now:"

	out, err := s.suggester.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: 0.2,
		MaxTokens:   256,
	})
	if err != nil {
		lg.Warn("Faculty extraction failed", zap.String("url", labURL), zap.Error(err))
		return nil
	}
	if faculty := parseFacultyAnswer(out); len(faculty) > 0 {
		lg.Info("Extracted faculty from URL", zap.Int("count", len(faculty)), zap.String("url", labURL))
		return faculty
	}

	text, err := s.fetcher.PageText(ctx, labURL)
	if err != nil || text == "" {
		return nil
	}
	if runes := []rune(text); len(runes) > facultyPageTextCap {
		text = string(runes[:facultyPageTextCap])
	}

	out, err = s.suggester.Complete(ctx, llm.Request{
		Prompt: "The following text was scraped from a university research lab web page. " +
			"Identify all faculty (professors / principal investigators) mentioned along with any e-mail addresses.\n" +
			"Return ONLY a JSON array of objects with 'name' and 'email' keys. If e-mail not present, set email to ''.\n\n" +
			"TEXT:\n" + text + "\n\nRespond with JSON now:",
		Temperature: 0.2,
		MaxTokens:   256,
	})
	if err != nil {
		lg.Warn("Faculty text extraction failed", zap.String("url", labURL), zap.Error(err))
		return nil
	}
	faculty := parseFacultyAnswer(out)
	if len(faculty) > 0 {
		lg.Info("Extracted faculty from page text", zap.Int("count", len(faculty)), zap.String("url", labURL))
	}
	return faculty
}

// parseFacultyAnswer reads the model's answer as a JSON roster, falling
// back to scanning free-form lines for names and emails.
func parseFacultyAnswer(raw string) []Faculty {
	raw = llm.CleanJSON(raw)

	var rows []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(raw), &rows); err == nil {
		var out []Faculty
		seen := make(map[string]struct{})
		for _, r := range rows {
			name := strings.TrimSpace(r.Name)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, Faculty{Name: name, Email: strings.TrimSpace(r.Email)})
		}
		return out
	}

	return parseFacultyLines(raw)
}

func parseFacultyLines(text string) []Faculty {
	var out []Faculty
	seen := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•* "))
		if line == "" {
			continue
		}
		email := emailRe.FindString(line)
		namePart := strings.Trim(strings.ReplaceAll(line, email, ""), " ():,;-")
		m := profNameRe.FindStringSubmatch(namePart)
		if m == nil {
			continue
		}
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Faculty{Name: name, Email: email})
	}
	return out
}
