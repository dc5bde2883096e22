package client

import "encoding/base64"

// EncodeCode turns snippet text into its wire form: standard base64 of the
// UTF-8 bytes. Go strings are already UTF-8, so non-ASCII text needs no extra step.
func EncodeCode(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// DecodeCode reverses EncodeCode.
//
// Documents written by other tools may hold plain text in code. Rather than
// hide such a snippet, the raw value is returned when it is not valid base64.
func DecodeCode(wire string) string {
	b, err := base64.StdEncoding.DecodeString(wire)
	if err != nil {
		return wire
	}
	return string(b)
}
