package posts

import "strings"

const (
	reasonBackslash    = "message contains a backslash"
	reasonNonPrintable = "message contains a character outside printable ASCII"
)

// CheckContent applies the content filter. A message passes when every byte
// is printable ASCII (32..126) and none of them is a backslash.
func CheckContent(message string) (reason string, ok bool) {
	for i := 0; i < len(message); i++ {
		b := message[i]
		if b == '\\' {
			return reasonBackslash, false
		}
		if b < 32 || b > 126 {
			return reasonNonPrintable, false
		}
	}
	return "", true
}

func rejectionNotice(reason string) string {
	return "Your post was not published: " + reason + "."
}

func hasBackslash(message string) bool {
	return strings.IndexByte(message, '\\') >= 0
}
