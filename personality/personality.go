// Package personality loads the bot's character definition and renders
// it into model prompts.
package personality

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Personality describes who the bot is and how it writes.
type Personality struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Personality []string `json:"personality"`
	Bio         []string `json:"bio"`
	Knowledge   []string `json:"knowledge"`
	Style       struct {
		Tweets []string `json:"tweets"`
	} `json:"style"`
	Engagement struct {
		Twitter []string `json:"twitter"`
	} `json:"engagement"`
}

// Load reads a personality definition from a JSON file.
func Load(path string) (*Personality, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("personality: read %s: %w", path, err)
	}
	var p Personality
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("personality: parse %s: %w", path, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("personality: %s: name is required", path)
	}
	return &p, nil
}

var tweetTemplate = template.Must(template.New("tweet").Parse(`You are {{.Name}}. {{.Description}}

Personality:
{{- range .Personality}}
- {{.}}
{{- end}}

Bio:
{{- range .Bio}}
- {{.}}
{{- end}}

Knowledge:
{{- range .Knowledge}}
- {{.}}
{{- end}}

Tweet style:
{{- range .Style.Tweets}}
- {{.}}
{{- end}}
{{- if .Recent}}

Your recent tweets, newest first:
{{- range .Recent}}
- {{.}}
{{- end}}

Avoid repeating yourself: do not reuse the topics, phrasing, or structure of the tweets above.
{{- end}}

Write a single tweet in character. It must be under 280 characters. Respond with a JSON object of the form {"tweet": "..."}.`))

type tweetPromptData struct {
	*Personality
	Recent []string
}

// TweetPrompt renders the prompt for composing a new tweet. recent is
// the bot's latest published tweets, newest first, used to steer the
// model away from repetition.
func (p *Personality) TweetPrompt(recent []string) (string, error) {
	var sb strings.Builder
	err := tweetTemplate.Execute(&sb, tweetPromptData{Personality: p, Recent: recent})
	if err != nil {
		return "", fmt.Errorf("personality: render tweet prompt: %w", err)
	}
	return sb.String(), nil
}
