package source

import "strings"

// BlockType describes the kind of anti-bot block detected in a response.
type BlockType string

const (
	BlockNone    BlockType = ""
	BlockCaptcha BlockType = "captcha"
	BlockJSShell BlockType = "js_shell"
)

// DetectBlock inspects a scraped HTML body for signs of anti-bot
// protection. Search-engine and social sources serve captchas or JS-only
// shells to unauthenticated crawlers; a blocked page parses as empty, so
// detecting the block keeps the diagnostic honest.
func DetectBlock(status int, body []byte) (bool, BlockType) {
	lower := strings.ToLower(string(body))

	if status == 403 || status == 429 {
		return true, BlockCaptcha
	}
	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") ||
		strings.Contains(lower, "unusual traffic") {
		return true, BlockCaptcha
	}

	// JS-only shell: small body that tells the reader to enable JavaScript.
	if len(body) < 4000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
