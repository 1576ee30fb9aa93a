package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one catalog entry: a named trait or perk.
type Record struct {
	Name        string   `json:"name" yaml:"name"`
	Tags        []string `json:"tags" yaml:"tags"`
	Description string   `json:"description" yaml:"description"`
	Effects     []Effect `json:"effects,omitempty" yaml:"effects"`
}

// Effect is a structured effect entry attached to a trait.
type Effect struct {
	Type      string     `json:"type" yaml:"type"`
	Value     string     `json:"value" yaml:"value"`
	Scope     StringList `json:"scope,omitempty" yaml:"scope,omitempty"`
	Condition string     `json:"condition,omitempty" yaml:"condition,omitempty"`
	Duration  string     `json:"duration,omitempty" yaml:"duration,omitempty"`
	Stacks    int        `json:"stacks,omitempty" yaml:"stacks,omitempty"`
	Note      string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// Text flattens the effect into a single searchable line.
func (e Effect) Text() string {
	parts := []string{e.Type, e.Value}
	parts = append(parts, e.Scope...)
	parts = append(parts, e.Condition, e.Duration, e.Note)
	if e.Stacks > 0 {
		parts = append(parts, "stacks "+strconv.Itoa(e.Stacks))
	}

	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

// EffectTexts returns the flattened text of every effect, in order.
func (r Record) EffectTexts() []string {
	out := make([]string, 0, len(r.Effects))
	for _, e := range r.Effects {
		if t := e.Text(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// StringList accepts either a single string or a list of strings in the
// source data and serializes back to the same shape: one element is written
// as a bare string.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: scope must be a string or a list of strings", value.Line)
	}
}

func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("scope must be a string or a list of strings: %w", err)
	}
	*s = list
	return nil
}

func (s StringList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}
