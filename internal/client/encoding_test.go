package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		wire string
	}{
		{name: "ascii", text: "print('hi')", wire: "cHJpbnQoJ2hpJyk="},
		{name: "empty", text: "", wire: ""},
		{name: "accents", text: "café", wire: "Y2Fmw6k="},
		{name: "cjk and emoji", text: "// 你好 🚀\n", wire: "Ly8g5L2g5aW9IPCfmoAK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wire, EncodeCode(tt.text))
			assert.Equal(t, tt.text, DecodeCode(tt.wire))
		})
	}
}

func TestDecodeCode_NotBase64(t *testing.T) {
	assert.Equal(t, "console.log(1)", DecodeCode("console.log(1)"))
}
