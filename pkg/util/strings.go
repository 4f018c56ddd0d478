package util

import "unicode/utf8"

// MaxDescribedBody is the default limit applied by TruncateBody.
const MaxDescribedBody = 10 * 1024

// TruncateBody shortens data to at most maxSize bytes for use in a mismatch
// description, appending "...(truncated)". The cut never splits a UTF-8
// sequence. A maxSize <= 0 means MaxDescribedBody.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxDescribedBody
	}
	if len(data) <= maxSize {
		return data
	}
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut] + "...(truncated)"
}
