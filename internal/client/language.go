package client

import "github.com/samber/lo"

// Language is one entry of the language picker.
type Language struct {
	Value string
	Label string
}

// Languages are the choices offered for a snippet's language, in display order.
// The first entry is the default for a new snippet.
var Languages = []Language{
	{Value: "javascript", Label: "JavaScript"},
	{Value: "python", Label: "Python"},
	{Value: "typescript", Label: "TypeScript"},
	{Value: "java", Label: "Java"},
	{Value: "html", Label: "HTML"},
	{Value: "css", Label: "CSS"},
	{Value: "sql", Label: "SQL"},
	{Value: "json", Label: "JSON"},
	{Value: "shell", Label: "Shell/Bash"},
	{Value: "markdown", Label: "Markdown"},
	{Value: "text", Label: "Plain Text"},
	{Value: "other", Label: "Other"},
}

// DefaultLanguage is preselected when creating a snippet.
var DefaultLanguage = Languages[0].Value

// LookupLanguage finds a language by value.
func LookupLanguage(value string) (Language, bool) {
	return lo.Find(Languages, func(l Language) bool { return l.Value == value })
}

// LanguageLabel is the display name for value, or value itself if unknown.
func LanguageLabel(value string) string {
	if l, ok := LookupLanguage(value); ok {
		return l.Label
	}
	return value
}

// HighlightMode maps a snippet language to the name a syntax highlighter
// (Prism, Chroma) expects. Unknown languages fall back to plaintext.
func HighlightMode(value string) string {
	switch value {
	case "html":
		return "markup"
	case "shell":
		return "bash"
	case "", "text", "other":
		return "plaintext"
	}
	if _, ok := LookupLanguage(value); ok {
		return value
	}
	return "plaintext"
}
