package privacy

import "regexp"

const redactedPlaceholder = "[REDACTED]"

// tokenPattern matches access_token values as they appear in request
// URLs, which transport errors quote verbatim.
var tokenPattern = regexp.MustCompile(`(access_token=)[^&\s"]+`)

// ScrubToken replaces any access_token query value in text with a
// placeholder so credentials never reach logs or error output.
func ScrubToken(text string) string {
	return tokenPattern.ReplaceAllString(text, "${1}"+redactedPlaceholder)
}
