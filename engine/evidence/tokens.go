package evidence

import "unicode/utf8"

// CharsPerToken is the rough provider-agnostic token size estimate shared by
// chunk sizing and context budget accounting.
const CharsPerToken = 4

// EstimateTokens approximates token counts at four characters per token.
// Non-empty text always counts as at least one token.
func EstimateTokens(text string) int {
	count := utf8.RuneCountInString(text)
	if count == 0 {
		return 0
	}
	tokens := count / CharsPerToken
	if tokens == 0 {
		return 1
	}
	return tokens
}
