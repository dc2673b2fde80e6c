// Package postprocess removes LLM artifacts from backend output.
//
// It runs on the full text of a translation or proofreading response once
// streaming has finished, before the text is stored on a chapter.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts in four phases and returns the trimmed result:
//  1. Thinking / reasoning blocks
//  2. Echoed answer prefixes ("Translation:", "Here is the proofread text:")
//  3. Echoed prompt delimiters (""" or ``` fences around the whole answer)
//  4. A pair of quotes wrapping the whole answer
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeDelimiters(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// RE2 has no backreferences, so every tag pair is spelled out.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// An opened block whose closing tag never arrived (output cut off).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// echoPatterns are anchored at the start and require a colon.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]?\s+`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| your)? (?:refined |polished |translated |proofread |corrected |edited )?(?:translation|text|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:refined |polished |proofread |corrected )?(?:translation|translated text|proofread text|corrected text)\s*:`),
}

func removeInstructionEchoes(text string) string {
	trimmed := text
	// The courtesy prefix is only dropped when an echo follows it.
	if loc := echoPatterns[0].FindStringIndex(trimmed); loc != nil {
		rest := trimmed[loc[1]:]
		if echoPatterns[1].MatchString(rest) || echoPatterns[2].MatchString(rest) {
			trimmed = rest
		}
	}
	for _, re := range echoPatterns[1:] {
		if loc := re.FindStringIndex(trimmed); loc != nil {
			return strings.TrimSpace(trimmed[loc[1]:])
		}
	}
	return text
}

var delimiterRe = regexp.MustCompile("(?s)^(?:\"\"\"|```[A-Za-z]*)\\s*\n?(.*?)\\s*(?:\"\"\"|```)$")

func removeDelimiters(text string) string {
	if m := delimiterRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'`':  '`',
	'«':  '»',
	'“':  '”',
	'‘':  '’',
}

// removeQuoteWrapping strips one pair of outer quotes when neither quote
// character occurs inside, so prose that opens and closes with dialogue
// keeps its quotation marks.
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	closing, ok := quotePairs[runes[0]]
	if !ok || runes[n-1] != closing {
		return text
	}
	inner := string(runes[1 : n-1])
	if strings.ContainsRune(inner, runes[0]) || strings.ContainsRune(inner, closing) {
		return text
	}
	return strings.TrimSpace(inner)
}
