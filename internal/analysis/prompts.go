package analysis

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Templates holds the instruction text sent alongside the résumé.
// Text and Attachment each take exactly one %s: the résumé text and the
// attachment's display name respectively. Any other % is literal text.
// System is optional.
type Templates struct {
	System     string
	Text       string
	Attachment string
}

// DefaultTemplates are used when no template is configured.
var DefaultTemplates = Templates{
	Text: `Please analyze the following resume text thoroughly. Extract the requested information and provide an objective analysis based on common resume best practices for a software developer role. Structure your response strictly according to the provided JSON schema.

Resume Text:
---
%s
---

Analyze the text and return the JSON object.`,

	Attachment: `Please analyze the attached resume file (%s) thoroughly. Extract the requested information and provide an objective analysis based on common resume best practices for a software developer role. Structure your response strictly according to the provided JSON schema. Return only the JSON object.`,
}

// Validate checks that each template has exactly the placeholders it is formatted with.
func (t Templates) Validate() error {
	if n := strings.Count(t.Text, placeholder); n != 1 {
		return fmt.Errorf("text template must contain exactly one %%s placeholder, found %d", n)
	}
	if n := strings.Count(t.Attachment, placeholder); n != 1 {
		return fmt.Errorf("attachment template must contain exactly one %%s placeholder, found %d", n)
	}
	return nil
}

// placeholder is substituted literally; other % signs are left untouched.
const placeholder = "%s"

func (t Templates) formatText(resume string) string {
	return strings.Replace(t.Text, placeholder, resume, 1)
}

func (t Templates) formatAttachment(name string) string {
	if name == "" {
		name = "resume"
	}
	return strings.Replace(t.Attachment, placeholder, name, 1)
}

// TemplateStore holds the active Templates. Reads never block and a
// reload swaps the whole set at once.
type TemplateStore struct {
	current atomic.Pointer[Templates]
}

// NewTemplateStore returns a store seeded with t, falling back to
// DefaultTemplates when t is invalid.
func NewTemplateStore(t Templates) *TemplateStore {
	s := &TemplateStore{}
	if err := s.Store(t); err != nil {
		d := DefaultTemplates
		s.current.Store(&d)
	}
	return s
}

// Load returns the current templates.
func (s *TemplateStore) Load() Templates {
	if s == nil {
		return DefaultTemplates
	}
	if t := s.current.Load(); t != nil {
		return *t
	}
	return DefaultTemplates
}

// Store validates and installs t. The previous templates stay active on error.
func (s *TemplateStore) Store(t Templates) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.current.Store(&t)
	return nil
}
