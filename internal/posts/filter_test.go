package posts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckContent(t *testing.T) {
	cases := []struct {
		name    string
		message string
		ok      bool
		reason  string
	}{
		{name: "plain", message: "hello world", ok: true},
		{name: "empty", message: "", ok: true},
		{name: "punctuation", message: "~!@#$%^&*()_+{}|:\"<>?`-=[];',./", ok: true},
		{name: "backslash", message: `C:\temp`, reason: reasonBackslash},
		{name: "newline", message: "line\nbreak", reason: reasonNonPrintable},
		{name: "tab", message: "a\tb", reason: reasonNonPrintable},
		{name: "delete", message: "a\x7fb", reason: reasonNonPrintable},
		{name: "unicode", message: "café", reason: reasonNonPrintable},
		{name: "backslash wins when first", message: `\é`, reason: reasonBackslash},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, ok := CheckContent(tc.message)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestRejectionNotice(t *testing.T) {
	assert.Equal(t, "Your post was not published: message contains a backslash.", rejectionNotice(reasonBackslash))
}
