package gateway

import (
	"testing"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

func TestParseDetailFromFencedReply(t *testing.T) {
	t.Parallel()

	raw := "Sure! Here is the explanation:\n```json\n{\"meaning\":\"m\",\"background\":\"b\",\"examples\":[\"one\",\" \",\"two\"]}\n```"
	detail, err := parseDetail(raw)
	if err != nil {
		t.Fatalf("parseDetail() error = %v", err)
	}
	if detail.Meaning != "m" || detail.Background != "b" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if len(detail.Examples) != 2 {
		t.Fatalf("expected blank example dropped, got %v", detail.Examples)
	}
}

func TestParseDetailRequiresMeaningAndExamples(t *testing.T) {
	t.Parallel()

	if _, err := parseDetail(`{"background":"b"}`); FailureReason(err) != ReasonMalformed {
		t.Fatalf("expected malformed failure, got %v", err)
	}
}

func TestParseSearchResultsEmptyArrayIsNoMatches(t *testing.T) {
	t.Parallel()

	results, err := parseSearchResults("[]", []string{"English"}, phrase.KindIdiom)
	if err != nil {
		t.Fatalf("parseSearchResults() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %+v", results)
	}
}

func TestParseSearchResultsDedupsAndClamps(t *testing.T) {
	t.Parallel()

	raw := `[
		{"text":"A","language":"English"},{"text":"a","language":"English"},
		{"text":"B","language":"English"},{"text":"C","language":"English"},
		{"text":"D","language":"English"},{"text":"E","language":"English"},
		{"text":"F","language":"English"}
	]`
	results, err := parseSearchResults(raw, []string{"English"}, phrase.KindWord)
	if err != nil {
		t.Fatalf("parseSearchResults() error = %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected five deduped results, got %d", len(results))
	}
	if results[0].Kind != phrase.KindWord {
		t.Fatalf("expected requested kind to backfill missing field, got %+v", results[0])
	}
}

func TestParseStringListRejectsProse(t *testing.T) {
	t.Parallel()

	if _, err := parseStringList("no list here at all", maxRelated); FailureReason(err) != ReasonMalformed {
		t.Fatalf("expected malformed failure, got %v", err)
	}
}
