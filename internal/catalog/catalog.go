// Package catalog holds the configured languages and their study items. The
// default set ships embedded in the binary; a user file can add languages or
// replace the item lists of existing ones.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chirag6451/idiom-master/internal/phrase"
)

//go:embed catalog.yaml
var embedded []byte

// ErrEmptyCatalog signals that no items are configured for a selection.
var ErrEmptyCatalog = errors.New("no items configured for this language and kind")

// ErrMissingConfig signals the catalog could not be loaded at all. Fatal to
// the session: the app renders a blocking configuration error screen.
var ErrMissingConfig = errors.New("language catalog missing or unreadable")

// Language is one configured study language with its item lists.
type Language struct {
	Tag    string   `yaml:"tag"`
	Native string   `yaml:"native"`
	Idioms []string `yaml:"idioms"`
	Words  []string `yaml:"words"`
}

type document struct {
	Version   int        `yaml:"version"`
	Languages []Language `yaml:"languages"`
}

// Catalog answers which languages and items the app supports.
type Catalog struct {
	languages []Language
	byTag     map[string]int
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return parse(embedded)
}

// Load parses the embedded catalog and, when path names an existing file,
// merges the user's languages over it: a matching tag replaces the default
// entry wholesale, a new tag is appended.
func Load(path string) (*Catalog, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	user, err := parse(data)
	if err != nil {
		return nil, err
	}
	for _, lang := range user.languages {
		base.put(lang)
	}
	return base, nil
}

func parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	if len(doc.Languages) == 0 {
		return nil, fmt.Errorf("%w: no languages configured", ErrMissingConfig)
	}
	c := &Catalog{byTag: make(map[string]int, len(doc.Languages))}
	for _, lang := range doc.Languages {
		if lang.Tag == "" {
			continue
		}
		c.put(lang)
	}
	if len(c.languages) == 0 {
		return nil, fmt.Errorf("%w: no usable language entries", ErrMissingConfig)
	}
	return c, nil
}

func (c *Catalog) put(lang Language) {
	if i, ok := c.byTag[lang.Tag]; ok {
		c.languages[i] = lang
		return
	}
	c.byTag[lang.Tag] = len(c.languages)
	c.languages = append(c.languages, lang)
}

// Languages lists the configured languages in file order.
func (c *Catalog) Languages() []Language {
	out := make([]Language, len(c.languages))
	copy(out, c.languages)
	return out
}

// Has reports whether the tag names a configured language.
func (c *Catalog) Has(tag string) bool {
	_, ok := c.byTag[tag]
	return ok
}

// Items returns the configured item texts for a language and kind.
func (c *Catalog) Items(tag string, kind phrase.Kind) []string {
	i, ok := c.byTag[tag]
	if !ok {
		return nil
	}
	switch kind {
	case phrase.KindIdiom:
		return c.languages[i].Idioms
	case phrase.KindWord:
		return c.languages[i].Words
	default:
		return nil
	}
}

// Random picks one item uniformly from the configured slice for (tag, kind).
func (c *Catalog) Random(tag string, kind phrase.Kind) (phrase.Item, error) {
	items := c.Items(tag, kind)
	if len(items) == 0 {
		return phrase.Item{}, ErrEmptyCatalog
	}
	return phrase.Item{
		Text:     items[rand.Intn(len(items))],
		Language: tag,
		Kind:     kind,
	}, nil
}

// Supported reports whether an item's language and kind are both configured.
// Search results from the gateway pass through this filter: generative
// responses are untrusted and may invent languages.
func (c *Catalog) Supported(item phrase.Item) bool {
	return item.Kind.Valid() && c.Has(item.Language)
}
