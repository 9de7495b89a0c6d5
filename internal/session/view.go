package session

import (
	"github.com/chirag6451/idiom-master/internal/phrase"
)

// ViewKind names the active variant of the session view.
type ViewKind int

const (
	KindIdle ViewKind = iota
	KindLoading
	KindError
	KindDetail
	KindSearchResults
	KindRelatedResults
	KindFavoritesList
)

func (k ViewKind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindLoading:
		return "loading"
	case KindError:
		return "error"
	case KindDetail:
		return "detail"
	case KindSearchResults:
		return "search-results"
	case KindRelatedResults:
		return "related-results"
	case KindFavoritesList:
		return "favorites-list"
	}
	return "unknown"
}

// View is the single source of truth for what the UI renders. Exactly one
// variant is populated at a time; every transition builds a fresh value, so
// state owned by the previous variant cannot leak into the next one.
type View struct {
	kind ViewKind

	// Detail
	item               phrase.Item
	detail             phrase.Detail
	equivalents        phrase.Equivalents
	equivalentsLoading bool
	isFavorite         bool
	isPlaying          bool

	// Error
	errMessage string
	failed     phrase.Item

	// SearchResults
	query         string
	results       []phrase.Item
	searchLoading bool
	searchErr     string

	// RelatedResults
	origin         phrase.Item
	related        []phrase.Item
	relatedLoading bool
	relatedErr     string

	// FavoritesList
	favorites []phrase.Favorite
}

func idleView() View {
	return View{kind: KindIdle}
}

func loadingView() View {
	return View{kind: KindLoading}
}

func errorView(message string, failed phrase.Item) View {
	return View{kind: KindError, errMessage: message, failed: failed}
}

func detailView(item phrase.Item, detail phrase.Detail) View {
	return View{kind: KindDetail, item: item, detail: detail}
}

func searchView(query string) View {
	return View{kind: KindSearchResults, query: query, searchLoading: true}
}

func relatedView(origin phrase.Item) View {
	return View{kind: KindRelatedResults, origin: origin, relatedLoading: true}
}

func favoritesView(favorites []phrase.Favorite) View {
	return View{kind: KindFavoritesList, favorites: favorites}
}

func (v View) Kind() ViewKind { return v.kind }

// Item returns the phrase shown by the Detail variant.
func (v View) Item() phrase.Item { return v.item }

func (v View) Detail() phrase.Detail { return v.detail }

func (v View) Equivalents() phrase.Equivalents { return v.equivalents }

func (v View) EquivalentsLoading() bool { return v.equivalentsLoading }

func (v View) IsFavorite() bool { return v.isFavorite }

func (v View) IsPlaying() bool { return v.isPlaying }

// ErrorMessage returns the blocking message of the Error variant.
func (v View) ErrorMessage() string { return v.errMessage }

// FailedItem identifies the phrase whose fetch produced the Error variant,
// so a retry can target it again.
func (v View) FailedItem() phrase.Item { return v.failed }

func (v View) Query() string { return v.query }

func (v View) Results() []phrase.Item { return v.results }

func (v View) SearchLoading() bool { return v.searchLoading }

func (v View) SearchError() string { return v.searchErr }

func (v View) Origin() phrase.Item { return v.origin }

func (v View) Related() []phrase.Item { return v.related }

func (v View) RelatedLoading() bool { return v.relatedLoading }

func (v View) RelatedError() string { return v.relatedErr }

func (v View) Favorites() []phrase.Favorite { return v.favorites }
