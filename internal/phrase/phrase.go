package phrase

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two classes of learnable items.
type Kind string

const (
	KindIdiom Kind = "idiom"
	KindWord  Kind = "word"
)

// ParseKind normalizes user or wire input into a Kind.
// It accepts the plural spellings catalog files tend to use.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idiom", "idioms":
		return KindIdiom, nil
	case "word", "words", "vocabulary":
		return KindWord, nil
	default:
		return "", fmt.Errorf("unknown item kind %q", s)
	}
}

// Valid reports whether k is one of the two supported kinds.
func (k Kind) Valid() bool {
	return k == KindIdiom || k == KindWord
}

// Label returns the kind name suitable for display.
func (k Kind) Label() string {
	switch k {
	case KindIdiom:
		return "Idiom"
	case KindWord:
		return "Word"
	default:
		return string(k)
	}
}

// Item is a learnable unit: an idiom or a vocabulary phrase. Immutable once fetched.
type Item struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Kind     Kind   `json:"kind"`
}

// Detail is the explanation payload for an Item. Examples has at least one
// entry; the first one is the canonical sentence used for speech synthesis.
type Detail struct {
	Meaning    string   `json:"meaning"`
	Background string   `json:"background"`
	Examples   []string `json:"examples"`
}

// CanonicalExample returns the sentence used for speech synthesis, falling
// back to the item text when the detail carries no examples.
func (d Detail) CanonicalExample(fallback string) string {
	if len(d.Examples) > 0 && strings.TrimSpace(d.Examples[0]) != "" {
		return d.Examples[0]
	}
	return fallback
}

// Equivalents maps a language tag to the equivalent phrase in that language.
// A language with no known equivalent is absent from the map, never empty.
type Equivalents map[string]string

// AudioRef points at cached pronunciation audio: either raw PCM bytes held
// inline or a durable URL served by the sync backend. SampleRate and Channels
// describe the PCM layout of whichever source is set.
type AudioRef struct {
	URL        string `json:"url,omitempty"`
	Data       []byte `json:"data,omitempty"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// Empty reports whether the ref carries neither inline bytes nor a URL.
func (r *AudioRef) Empty() bool {
	return r == nil || (r.URL == "" && len(r.Data) == 0)
}

// Favorite is a persisted bookmark with a frozen copy of the detail so it
// renders offline.
type Favorite struct {
	Key      string    `json:"key"`
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Kind     Kind      `json:"kind"`
	Detail   Detail    `json:"detail"`
	Audio    *AudioRef `json:"audio,omitempty"`
	SavedAt  time.Time `json:"savedAt"`
}

// Item returns the favorite's identity as a selectable item.
func (f Favorite) Item() Item {
	return Item{Text: f.Text, Language: f.Language, Kind: f.Kind}
}

// FavoriteKey derives the deterministic lookup key for a bookmark. The same
// text saved as an idiom and as a word are distinct favorites, so the kind is
// part of the key.
func FavoriteKey(userID, text, language string, kind Kind) string {
	raw := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(userID)),
		strings.ToLower(strings.TrimSpace(text)),
		strings.ToLower(strings.TrimSpace(language)),
		string(kind),
	}, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewFavorite freezes the given detail into a bookmark for userID.
func NewFavorite(userID string, item Item, detail Detail, audio *AudioRef) Favorite {
	return Favorite{
		Key:      FavoriteKey(userID, item.Text, item.Language, item.Kind),
		Text:     item.Text,
		Language: item.Language,
		Kind:     item.Kind,
		Detail:   detail,
		Audio:    audio,
		SavedAt:  time.Now(),
	}
}
