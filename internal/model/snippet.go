// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet represents a saved code snippet.
// The `json:"..."` tags tell Go's encoding/json package how to serialize/deserialize
// this struct to/from JSON. This is called a "struct tag", metadata attached to fields.
//
// WIRE NAMES:
// The JSON names follow the document shape the front-end already consumes:
//
//	{"_id":"cv37rs3pp9olc6atsptg","code":"cHJpbnQoKQ==","description":"...",
//	 "language":"python","tags":["io"],"created_at":"...","modified_at":"..."}
//
// Code travels base64-encoded. The server never decodes it; only the client does.
type Snippet struct {
	ID          string    `json:"_id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Clone returns a deep copy. Tags is a slice, so a plain struct copy would
// share its backing array with the original.
func (s Snippet) Clone() Snippet {
	out := s
	if s.Tags != nil {
		out.Tags = make([]string, len(s.Tags))
		copy(out.Tags, s.Tags)
	}
	return out
}

// Operation is the kind of tag mutation applied by the tag-update endpoint.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationRemove Operation = "remove"
)
