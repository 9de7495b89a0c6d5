package session

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"pgregory.net/rapid"

	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/gateway"
	"github.com/chirag6451/idiom-master/internal/phrase"
)

// Both languages are pinned to single items so random picks stay deterministic
// under rapid's shrinking.
const propertyCatalogYAML = `version: 1
languages:
  - tag: English
    native: English
    idioms:
      - Bite the bullet
    words:
      - serendipity
  - tag: Spanish
    native: Español
    idioms:
      - Tomar el pelo
    words:
      - sobremesa
`

// TestSessionRandomOpsHoldInvariants drives the orchestrator the way the
// bubbletea runtime would, except that pending results are delivered in a
// rapid-chosen order. However the interleaving falls, the rendered flags must
// keep matching the state they summarize.
func TestSessionRandomOpsHoldInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m, gw, store := newTestModel(t)
		m.deps.Catalog = loadTestCatalog(t, propertyCatalogYAML)
		gw.related = []string{"Break the ice", "Spill the beans"}
		gw.results = []phrase.Item{englishIdiom("Spill the beans")}

		texts := make([]string, 6)
		for i := range texts {
			texts[i] = fmt.Sprintf("phrase-%d", i)
		}

		var queue []tea.Cmd
		enqueue := func(cmd tea.Cmd) {
			if cmd != nil {
				queue = append(queue, cmd)
			}
		}
		deliver := func(idx int) {
			cmd := queue[idx]
			queue = append(queue[:idx], queue[idx+1:]...)
			next, handled := m.Update(cmd())
			if !handled {
				rt.Fatal("session cmd produced a foreign msg")
			}
			enqueue(next)
		}

		enqueue(m.Init())

		ops := []string{
			"random", "select", "search", "related", "back",
			"toggle", "playstop", "favorites", "next", "open",
			"retry", "language", "kind",
		}

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			gw.explainErr, gw.equivErr, gw.relatedErr = nil, nil, nil
			gw.searchErr, gw.speechErr = nil, nil
			switch rapid.IntRange(0, 9).Draw(rt, "failure") {
			case 0:
				gw.explainErr = &gateway.Failure{Reason: gateway.ReasonNetwork}
			case 1:
				gw.equivErr = &gateway.Failure{Reason: gateway.ReasonMalformed}
			case 2:
				gw.relatedErr = &gateway.Failure{Reason: gateway.ReasonRateLimited, Status: 429}
			case 3:
				gw.searchErr = &gateway.Failure{Reason: gateway.ReasonNotFound, Status: 404}
			case 4:
				gw.speechErr = &gateway.Failure{Reason: gateway.ReasonNoAudio}
			}

			if len(queue) > 0 && rapid.Bool().Draw(rt, "deliver") {
				deliver(rapid.IntRange(0, len(queue)-1).Draw(rt, "pending"))
			} else {
				switch rapid.SampledFrom(ops).Draw(rt, "op") {
				case "random":
					enqueue(m.SelectRandom())
				case "select":
					enqueue(m.Select(englishIdiom(rapid.SampledFrom(texts).Draw(rt, "text"))))
				case "search":
					enqueue(m.Search(rapid.SampledFrom([]string{"", "rain", "luck"}).Draw(rt, "query")))
				case "related":
					enqueue(m.ShowRelated())
				case "back":
					enqueue(m.Back())
				case "toggle":
					enqueue(m.ToggleFavorite())
				case "playstop":
					enqueue(m.PlayStop())
				case "favorites":
					enqueue(m.ShowFavorites())
				case "next":
					enqueue(m.NextFavorite())
				case "open":
					enqueue(m.OpenFavorite(rapid.IntRange(-1, 3).Draw(rt, "index")))
				case "retry":
					enqueue(m.Retry())
				case "language":
					m.SetLanguage(rapid.SampledFrom([]string{"English", "Spanish", "Klingon"}).Draw(rt, "tag"))
				case "kind":
					m.SetKind(phrase.Kind(rapid.SampledFrom([]string{"idiom", "word", "bogus"}).Draw(rt, "kind")))
				}
			}
			checkInvariants(rt, m, store)
		}

		// Drain. Every issued result eventually arrives, so the session must
		// end settled, with no busy flag and no live playback left behind.
		for len(queue) > 0 {
			deliver(0)
			checkInvariants(rt, m, store)
		}
		if m.favBusy {
			rt.Fatal("favorite toggle still marked busy after all results were applied")
		}
		if m.playing != nil || m.View().IsPlaying() {
			rt.Fatal("playback should have ended once its completion was applied")
		}
		if m.View().Kind() == KindLoading {
			rt.Fatal("a fetch was dropped without a replacement result")
		}
		if v := m.View(); v.EquivalentsLoading() || v.SearchLoading() || v.RelatedLoading() {
			rt.Fatal("a loading flag survived the drain")
		}
	})
}

// checkInvariants asserts the relations that must hold between every pair of
// operations, whatever happens to be in flight.
func checkInvariants(rt *rapid.T, m *Model, store favorites.Store) {
	view := m.View()
	if view.Kind().String() == "unknown" {
		rt.Fatalf("view kind %d is not a known variant", view.Kind())
	}
	if (m.playing != nil) != view.IsPlaying() {
		rt.Fatalf("playing flag %v disagrees with the live handle %v", view.IsPlaying(), m.playing != nil)
	}
	if len(m.favRing) > 0 && (m.favCursor < 0 || m.favCursor >= len(m.favRing)) {
		rt.Fatalf("favorites cursor %d out of range for %d entries", m.favCursor, len(m.favRing))
	}
	if view.Kind() != KindDetail {
		return
	}
	if view.Item().Text == "" {
		rt.Fatal("detail view without an item")
	}
	saved, err := store.List(context.Background(), "tester")
	if err != nil {
		rt.Fatalf("List failed: %v", err)
	}
	inStore := false
	for _, fav := range saved {
		if fav.Key == m.keyFor(view.Item()) {
			inStore = true
			break
		}
	}
	if view.IsFavorite() != inStore {
		rt.Fatalf("heart flag %v disagrees with the store %v for %q", view.IsFavorite(), inStore, view.Item().Text)
	}
}
