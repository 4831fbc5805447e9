package akinator

import "strings"

// ParseAnswer maps free text to an answer token. The second return is false
// when the text is not an answer at all; callers drop such messages silently.
func ParseAnswer(text string) (Answer, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y":
		return AnswerYes, true
	case "no", "n":
		return AnswerNo, true
	case "idk", "unsure", "dont know", "don't know":
		return AnswerUnsure, true
	case "probably", "p":
		return AnswerProbably, true
	case "probably not", "pn":
		return AnswerProbablyNot, true
	default:
		return -1, false
	}
}
