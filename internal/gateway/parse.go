package gateway

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

// Generative replies are untrusted: models wrap JSON in prose or code fences,
// invent fields and languages, and pad lists. Every parser here extracts the
// JSON payload candidates first and drops anything that does not fit the
// expected shape. A well-formed empty list is a valid answer, not an error.

func jsonCandidates(raw, open, close string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	candidates := []string{raw}
	if start := strings.Index(raw, open); start >= 0 {
		if end := strings.LastIndex(raw, close); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}
	return candidates
}

func parseDetail(raw string) (phrase.Detail, error) {
	for _, candidate := range jsonCandidates(raw, "{", "}") {
		if !gjson.Valid(candidate) {
			continue
		}
		res := gjson.Parse(candidate)
		if !res.IsObject() {
			continue
		}
		detail := phrase.Detail{
			Meaning:    strings.TrimSpace(res.Get("meaning").String()),
			Background: strings.TrimSpace(res.Get("background").String()),
		}
		for _, ex := range res.Get("examples").Array() {
			if s := strings.TrimSpace(ex.String()); s != "" {
				detail.Examples = append(detail.Examples, s)
			}
		}
		if detail.Meaning != "" && len(detail.Examples) > 0 {
			return detail, nil
		}
	}
	return phrase.Detail{}, failf(ReasonMalformed, "reply carried no usable explanation")
}

func parseStringList(raw string, limit int) ([]string, error) {
	for _, candidate := range jsonCandidates(raw, "[", "]") {
		if !gjson.Valid(candidate) {
			continue
		}
		res := gjson.Parse(candidate)
		if !res.IsArray() {
			continue
		}
		out := []string{}
		seen := map[string]bool{}
		res.ForEach(func(_, value gjson.Result) bool {
			s := strings.TrimSpace(value.String())
			if s == "" || seen[strings.ToLower(s)] {
				return true
			}
			seen[strings.ToLower(s)] = true
			out = append(out, s)
			return len(out) < limit
		})
		return out, nil
	}
	return nil, failf(ReasonMalformed, "reply carried no usable list")
}

func parseEquivalents(raw string, targets []string) (phrase.Equivalents, error) {
	allowed := make(map[string]string, len(targets))
	for _, t := range targets {
		allowed[strings.ToLower(t)] = t
	}
	for _, candidate := range jsonCandidates(raw, "{", "}") {
		if !gjson.Valid(candidate) {
			continue
		}
		res := gjson.Parse(candidate)
		if !res.IsObject() {
			continue
		}
		out := phrase.Equivalents{}
		res.ForEach(func(key, value gjson.Result) bool {
			tag, ok := allowed[strings.ToLower(strings.TrimSpace(key.String()))]
			if !ok {
				return true
			}
			if s := strings.TrimSpace(value.String()); s != "" {
				out[tag] = s
			}
			return true
		})
		return out, nil
	}
	return nil, failf(ReasonMalformed, "reply carried no usable equivalents")
}

func parseSearchResults(raw string, languages []string, kind phrase.Kind) ([]phrase.Item, error) {
	allowed := make(map[string]string, len(languages))
	for _, l := range languages {
		allowed[strings.ToLower(l)] = l
	}
	for _, candidate := range jsonCandidates(raw, "[", "]") {
		if !gjson.Valid(candidate) {
			continue
		}
		res := gjson.Parse(candidate)
		if !res.IsArray() {
			continue
		}
		out := []phrase.Item{}
		seen := map[string]bool{}
		res.ForEach(func(_, value gjson.Result) bool {
			text := strings.TrimSpace(value.Get("text").String())
			if text == "" {
				return true
			}
			tag, ok := allowed[strings.ToLower(strings.TrimSpace(value.Get("language").String()))]
			if !ok {
				// The model may invent languages the app never configured.
				return true
			}
			itemKind := kind
			if k, err := phrase.ParseKind(value.Get("kind").String()); err == nil {
				itemKind = k
			}
			dedup := strings.ToLower(text) + "|" + tag
			if seen[dedup] {
				return true
			}
			seen[dedup] = true
			out = append(out, phrase.Item{Text: text, Language: tag, Kind: itemKind})
			return len(out) < maxResults
		})
		return out, nil
	}
	return nil, failf(ReasonMalformed, "reply carried no usable search results")
}
