package gateway

import (
	"fmt"
	"strings"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func kindNoun(kind phrase.Kind) string {
	if kind == phrase.KindWord {
		return "vocabulary word"
	}
	return "idiom"
}

func buildExplainPrompt(text, language string, kind phrase.Kind) string {
	return fmt.Sprintf(
		"You are a %s language teacher. Explain the %s %q to a learner.\n"+
			"Give the meaning in one or two sentences, the background or origin in two or three sentences, "+
			"and 2-3 short example sentences using it naturally.\n"+
			"Return ONLY JSON that matches: {\"meaning\":\"\",\"background\":\"\",\"examples\":[\"\"]}.\n",
		language, kindNoun(kind), clipText(text, maxPhraseChars),
	)
}

func buildRelatedPrompt(text, language string, kind phrase.Kind) string {
	return fmt.Sprintf(
		"You are a %s language teacher. List up to %d other %ss in %s that a learner of %q should study next "+
			"because they share a theme, register, or common confusion with it.\n"+
			"Return ONLY a JSON array of strings such as [\"first\",\"second\"]. No explanations.\n",
		language, maxRelated, kindNoun(kind), language, clipText(text, maxPhraseChars),
	)
}

func buildEquivalentsPrompt(text, source string, targets []string, kind phrase.Kind) string {
	return fmt.Sprintf(
		"You are a multilingual language teacher. For the %s %s %q, give the closest natural equivalent "+
			"in each of these languages: %s.\n"+
			"Return ONLY a JSON object mapping language name to the equivalent phrase, for example "+
			"{\"Spanish\":\"...\",\"French\":\"...\"}. Omit a language entirely when no good equivalent exists.\n",
		source, kindNoun(kind), clipText(text, maxPhraseChars), strings.Join(targets, ", "),
	)
}

func buildSearchPrompt(query string, languages []string, kind phrase.Kind) string {
	return fmt.Sprintf(
		"You are a language-learning search engine. The learner searched for %q.\n"+
			"Return up to %d matching %ss drawn only from these languages: %s. Best match first.\n"+
			"Return ONLY a JSON array such as [{\"text\":\"\",\"language\":\"\",\"kind\":\"%s\"}]. No explanations.\n",
		clipText(query, maxQueryChars), maxResults, kindNoun(kind), strings.Join(languages, ", "), kind,
	)
}
