package session

import (
	"testing"

	"github.com/chirag6451/idiom-master/internal/gateway"
	"github.com/chirag6451/idiom-master/internal/phrase"
)

func TestSearchSkipsWhitespaceOnlyQuery(t *testing.T) {
	m, gw, _ := newTestModel(t)

	if cmd := m.Search("   "); cmd != nil {
		t.Fatalf("whitespace query must not start a fetch, got %T", cmd)
	}
	if got := m.View().Kind(); got != KindIdle {
		t.Fatalf("view must stay unchanged, got %v", got)
	}
	if gw.searchCalls != 0 {
		t.Fatalf("no gateway call expected, got %d", gw.searchCalls)
	}
}

func TestSearchFiltersUnsupportedLanguages(t *testing.T) {
	m, gw, _ := newTestModel(t)
	gw.results = []phrase.Item{
		{Text: "Break the ice", Language: "English", Kind: phrase.KindIdiom},
		{Text: "nuqneH", Language: "Klingon", Kind: phrase.KindIdiom},
		{Text: "Romper el hielo", Language: "Spanish", Kind: phrase.KindIdiom},
	}

	cmd := m.Search("ice breaker")
	view := m.View()
	if view.Kind() != KindSearchResults || !view.SearchLoading() {
		t.Fatalf("expected a loading search view, got %v", view.Kind())
	}

	apply(t, m, cmd)
	view = m.View()
	if view.SearchLoading() {
		t.Fatal("loading flag should clear once results land")
	}
	results := view.Results()
	if len(results) != 2 {
		t.Fatalf("unsupported language should be filtered, got %#v", results)
	}
	if results[0].Text != "Break the ice" || results[1].Text != "Romper el hielo" {
		t.Fatalf("gateway ordering must be preserved, got %#v", results)
	}
}

func TestSearchFailureKeepsQueryForRetry(t *testing.T) {
	m, gw, _ := newTestModel(t)
	gw.searchErr = &gateway.Failure{Reason: gateway.ReasonNetwork}

	apply(t, m, m.Search("blue moon"))
	view := m.View()
	if view.Kind() != KindSearchResults {
		t.Fatalf("failure should not discard the search view, got %v", view.Kind())
	}
	if view.Query() != "blue moon" {
		t.Fatalf("query must survive the failure, got %q", view.Query())
	}
	if view.SearchError() == "" {
		t.Fatal("search view should surface the failure")
	}
}

func TestNavigationInvalidatesPendingSearch(t *testing.T) {
	m, gw, _ := newTestModel(t)
	gw.results = []phrase.Item{{Text: "Break the ice", Language: "English", Kind: phrase.KindIdiom}}

	searchCmd := m.Search("ice")
	searchMsg := searchCmd()

	randomCmd := m.SelectRandom()
	if randomCmd == nil {
		t.Fatal("expected a fetch command")
	}

	if _, handled := m.Update(searchMsg); !handled {
		t.Fatal("search msg should be handled")
	}
	if got := m.View().Kind(); got != KindLoading {
		t.Fatalf("late search results must not replace the newer view, got %v", got)
	}
}

func TestShowRelatedRequiresDetailView(t *testing.T) {
	m, gw, _ := newTestModel(t)

	if cmd := m.ShowRelated(); cmd != nil {
		t.Fatalf("related outside detail view must be a no-op, got %T", cmd)
	}
	if gw.relatedCalls != 0 {
		t.Fatalf("no gateway call expected, got %d", gw.relatedCalls)
	}
}

func TestShowRelatedFailureKeepsOriginForBack(t *testing.T) {
	m, gw, _ := newTestModel(t)
	origin := englishIdiom("Spill the beans")
	toDetail(t, m, origin)

	gw.relatedErr = &gateway.Failure{Reason: gateway.ReasonRateLimited, Status: 429}
	relatedCmd := m.ShowRelated()
	view := m.View()
	if view.Kind() != KindRelatedResults || view.Origin().Text != origin.Text {
		t.Fatalf("expected related view for %q, got %v %q", origin.Text, view.Kind(), view.Origin().Text)
	}
	if !m.CanGoBack() {
		t.Fatal("origin should be remembered for back")
	}

	apply(t, m, relatedCmd)
	view = m.View()
	if view.RelatedError() == "" {
		t.Fatal("related failure should surface in the view")
	}
	if view.Origin().Text != origin.Text {
		t.Fatal("failure must keep the origin")
	}
	if !m.CanGoBack() {
		t.Fatal("back must still work after a failure")
	}

	backCmd := m.Back()
	if backCmd == nil {
		t.Fatal("back should re-select the origin")
	}
	apply(t, m, backCmd)
	if got := m.View().Item().Text; got != origin.Text {
		t.Fatalf("back should land on the origin, got %q", got)
	}
	if m.CanGoBack() {
		t.Fatal("origin should be cleared after back")
	}
}

func TestRelatedResultsPopulate(t *testing.T) {
	m, gw, _ := newTestModel(t)
	origin := englishIdiom("Under the weather")
	toDetail(t, m, origin)
	gw.related = []string{"Feeling blue", "Out of sorts"}

	apply(t, m, m.ShowRelated())
	view := m.View()
	if view.RelatedLoading() {
		t.Fatal("loading flag should clear once the list lands")
	}
	related := view.Related()
	if len(related) != 2 {
		t.Fatalf("expected two related phrases, got %#v", related)
	}
	if related[0].Language != origin.Language || related[0].Kind != origin.Kind {
		t.Fatalf("related items should inherit the origin selectors, got %#v", related[0])
	}
}

func TestBackWithoutOriginIsSilentNoOp(t *testing.T) {
	m, _, _ := newTestModel(t)
	if cmd := m.Back(); cmd != nil {
		t.Fatalf("back without an origin must be a no-op, got %T", cmd)
	}
	if got := m.View().Kind(); got != KindIdle {
		t.Fatalf("view must stay unchanged, got %v", got)
	}
}

func TestSelectClearsRememberedOrigin(t *testing.T) {
	m, _, _ := newTestModel(t)
	toDetail(t, m, englishIdiom("Spill the beans"))
	apply(t, m, m.ShowRelated())
	if !m.CanGoBack() {
		t.Fatal("origin should be remembered after showing related")
	}

	toDetail(t, m, englishIdiom("Break the ice"))
	if m.CanGoBack() {
		t.Fatal("committing to a new item should clear the origin")
	}
}
