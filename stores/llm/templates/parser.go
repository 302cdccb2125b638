// Package templates resolves localized prompt fragments from a static lookup
// table keyed by (language, group, key).
package templates

import (
	"strings"
	"text/template"
)

// Table maps language -> group -> key -> template text. Template values use
// text/template syntax and are rendered with a flat variable map.
type Table map[string]map[string]map[string]string

// Parser resolves templates for a requested language, falling back to a
// default language when the requested one (or a specific entry) is missing.
// Resolution never fails hard: a template absent in both languages yields
// ("", false) and the caller decides how severe that is.
type Parser struct {
	table           Table
	language        string
	defaultLanguage string
}

// NewParser builds a parser over the built-in locales. An unknown requested
// language degrades to the default language immediately.
func NewParser(language, defaultLanguage string) *Parser {
	return NewParserWithTable(locales, language, defaultLanguage)
}

// NewParserWithTable is like NewParser but over a caller-supplied table.
func NewParserWithTable(table Table, language, defaultLanguage string) *Parser {
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	p := &Parser{table: table, defaultLanguage: defaultLanguage}
	p.SetLanguage(language)
	return p
}

// SetLanguage switches the active language, degrading to the default when the
// table has no entry for it.
func (p *Parser) SetLanguage(language string) {
	if language == "" {
		p.language = p.defaultLanguage
		return
	}
	if _, ok := p.table[language]; ok {
		p.language = language
		return
	}
	p.language = p.defaultLanguage
}

// Language returns the active language after fallback.
func (p *Parser) Language() string { return p.language }

// Get renders the template for (group, key) with vars. The lookup tries the
// active language first, then the default language. The second return value
// reports whether a template was found and rendered.
func (p *Parser) Get(group, key string, vars map[string]any) (string, bool) {
	if group == "" || key == "" {
		return "", false
	}

	text, ok := p.lookup(p.language, group, key)
	if !ok && p.language != p.defaultLanguage {
		text, ok = p.lookup(p.defaultLanguage, group, key)
	}
	if !ok {
		return "", false
	}

	tmpl, err := template.New(group + "." + key).Parse(text)
	if err != nil {
		return "", false
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", false
	}
	return sb.String(), true
}

func (p *Parser) lookup(language, group, key string) (string, bool) {
	groups, ok := p.table[language]
	if !ok {
		return "", false
	}
	keys, ok := groups[group]
	if !ok {
		return "", false
	}
	text, ok := keys[key]
	return text, ok
}
