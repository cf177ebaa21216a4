package config

import (
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"promptrun/pkg/types"
)

var promptIDRe = regexp.MustCompile(`^[a-z0-9_]+$`)

var validRoles = map[string]bool{
	"system":    true,
	"user":      true,
	"assistant": true,
}

// LoadPrompts reads and validates a prompt set from a YAML list. Each entry
// needs an id plus exactly one of `prompt` or `messages`; any violation is a
// fatal configuration error.
func LoadPrompts(path string) ([]types.Prompt, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(path, "read", err)
	}
	var prompts []types.Prompt
	if err := yaml.Unmarshal(b, &prompts); err != nil {
		return nil, wrapErr(path, "parse yaml", err)
	}
	seen := make(map[string]bool, len(prompts))
	for i, p := range prompts {
		if p.ID == "" {
			return nil, Errorf(path, "prompt at index %d missing required 'id' field", i)
		}
		if !promptIDRe.MatchString(p.ID) {
			return nil, Errorf(path, "prompt id %q is invalid, must match ^[a-z0-9_]+$", p.ID)
		}
		if seen[p.ID] {
			return nil, Errorf(path, "duplicate prompt id %q", p.ID)
		}
		seen[p.ID] = true
		hasText := p.Text != ""
		hasMessages := len(p.Messages) > 0
		if !hasText && !hasMessages {
			return nil, Errorf(path, "prompt %q must have either 'prompt' or 'messages'", p.ID)
		}
		if hasText && hasMessages {
			return nil, Errorf(path, "prompt %q cannot have both 'prompt' and 'messages'", p.ID)
		}
		for j, m := range p.Messages {
			if m.Role == "" || m.Content == "" {
				return nil, Errorf(path, "prompt %q message %d must have 'role' and 'content'", p.ID, j)
			}
			if !validRoles[m.Role] {
				return nil, Errorf(path, "prompt %q message %d has invalid role %q", p.ID, j, m.Role)
			}
		}
		prompts[i].Options = ExpandOptions(p.Options)
	}
	return prompts, nil
}
