package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

const (
	topicCount      = cellCount - 1
	freeWord        = "FREE"
	freeDescription = "star"
)

// ErrInvalidTopicData is returned by a topic source whose answer cannot be
// used as a board.
var ErrInvalidTopicData = errors.New("invalid topic data")

// Topic is the content of one cell.
type Topic struct {
	Word             string `json:"word"`
	ImageDescription string `json:"imageDescription"`
}

// TopicSource produces the 24 topics of a board for a scripture reference.
type TopicSource interface {
	Topics(ctx context.Context, reference string) ([]Topic, error)
}

var wordLists = map[string][]string{
	"actions": {
		"PRAY", "SING", "SERVE", "GIVE", "HELP", "SHARE", "LOVE", "TRUST",
		"PRAISE", "BLESS", "WORSHIP", "THANK",
	},
	"concepts": {
		"FAITH", "HOPE", "GRACE", "PEACE", "JOY", "MERCY", "GLORY", "TRUTH",
		"HOLY", "GOOD", "SPIRIT", "POWER",
	},
	"objects": {
		"CROSS", "BIBLE", "BREAD", "WATER", "LIGHT", "CROWN", "LAMB", "DOVE",
		"FISH", "SCROLL", "TEMPLE", "ALTAR",
	},
	"attributes": {
		"KIND", "WISE", "PURE", "JUST", "TRUE", "MEEK", "BOLD", "CALM",
		"STRONG", "GENTLE", "HUMBLE", "LOYAL",
	},
}

var fallbackWords = []string{
	"PRAY", "FAITH", "HOPE", "LOVE", "GRACE", "PEACE",
	"LIGHT", "TRUTH", "JOY", "HOLY", "GLORY", "CROSS",
	"BIBLE", "HEART", "STAR", "DOVE", "CROWN",
}

// imageDescriptions maps vocabulary words to the image shown for them.
var imageDescriptions = map[string]string{
	"PRAY": "pray", "CROSS": "cross", "BIBLE": "bible", "HEART": "heart",
	"STAR": "star", "ANGEL": "angel", "CHURCH": "church", "DOVE": "dove",
	"FISH": "fish", "CROWN": "crown", "LIGHT": "light", "WATER": "water",
	"BREAD": "bread", "LAMB": "lamb", "SCROLL": "scroll", "FAITH": "cross",
	"HOPE": "star", "LOVE": "heart", "GRACE": "dove", "PEACE": "dove",
	"TRUTH": "bible", "HOLY": "cross", "GLORY": "crown", "SPIRIT": "dove",
	"WORSHIP": "pray", "PRAISE": "star", "TEMPLE": "church", "POWER": "light",
	"SERVE": "pray", "GIVE": "heart", "HELP": "pray", "SHARE": "bread",
	"TRUST": "cross", "BLESS": "star", "THANK": "pray",
	"KIND": "heart", "WISE": "scroll", "PURE": "water", "JUST": "crown",
	"TRUE": "bible", "MEEK": "lamb", "BOLD": "light", "CALM": "dove",
	"STRONG": "crown", "GENTLE": "lamb", "HUMBLE": "pray", "LOYAL": "heart",
}

// descriptionAliases is checked for an exact match first, then as substrings
// in declaration order.
var descriptionAliases = []struct{ from, to string }{
	{"clasping hands in prayer", "pray"},
	{"hands in prayer", "pray"},
	{"clasping hands", "pray"},
	{"praying", "pray"},
	{"prayer", "pray"},
	{"holy bible", "bible"},
	{"scripture", "bible"},
	{"holy cross", "cross"},
	{"crucifix", "cross"},
	{"holy spirit", "dove"},
	{"peace dove", "dove"},
	{"white dove", "dove"},
	{"holy water", "water"},
	{"bread of life", "bread"},
	{"holy bread", "bread"},
	{"scroll of scripture", "scroll"},
	{"ancient scroll", "scroll"},
	{"holy crown", "crown"},
	{"royal crown", "crown"},
	{"divine light", "light"},
	{"holy light", "light"},
	{"sacred heart", "heart"},
	{"loving heart", "heart"},
	{"guiding star", "star"},
	{"bright star", "star"},
	{"holy lamb", "lamb"},
	{"lamb of god", "lamb"},
	{"christian fish", "fish"},
	{"jesus fish", "fish"},
	{"ichthys", "fish"},
	{"church building", "church"},
	{"temple", "church"},
	{"sanctuary", "church"},
	{"holy angel", "angel"},
	{"guardian angel", "angel"},
}

var themeImages = []struct{ theme, image string }{
	{"worship", "pray"},
	{"faith", "cross"},
	{"hope", "star"},
	{"love", "heart"},
	{"spirit", "dove"},
	{"truth", "bible"},
	{"glory", "crown"},
	{"praise", "star"},
}

// normalizeDescription maps a free-form image description onto the small
// vocabulary of images the board knows how to show.
func normalizeDescription(desc string) string {
	desc = strings.ToLower(strings.TrimSpace(desc))
	if _, ok := knownImages[desc]; ok {
		return desc
	}
	for _, a := range descriptionAliases {
		if desc == a.from {
			return a.to
		}
	}
	for _, a := range descriptionAliases {
		if strings.Contains(desc, a.from) {
			return a.to
		}
	}
	for _, t := range themeImages {
		if strings.Contains(desc, t.theme) {
			return t.image
		}
	}
	return "cross"
}

// knownImages is the set of normalised descriptions.
var knownImages = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, d := range imageDescriptions {
		m[d] = struct{}{}
	}
	return m
}()

// vocabulary returns every fallback word that has an image, without FREE.
func vocabulary() []string {
	seen := mapset.New[string]()
	var out []string
	add := func(w string) {
		if w == freeWord || seen.Has(w) {
			return
		}
		if _, ok := imageDescriptions[w]; !ok {
			return
		}
		seen.Put(w)
		out = append(out, w)
	}
	for _, group := range []string{"actions", "concepts", "objects", "attributes"} {
		for _, w := range wordLists[group] {
			add(w)
		}
	}
	for _, w := range fallbackWords {
		add(w)
	}
	return out
}

// localTopics draws a card from the fallback vocabulary.
func localTopics(rng *rand.Rand) []Topic {
	return completeTopics(nil, rng)
}

// completeTopics cleans the topics returned by a source and fills the list
// from the shuffled fallback vocabulary until it holds topicCount unique
// words.
func completeTopics(topics []Topic, rng *rand.Rand) []Topic {
	used := mapset.New[string]()
	out := make([]Topic, 0, topicCount)
	for _, t := range topics {
		if len(out) == topicCount {
			break
		}
		word := strings.ToUpper(strings.TrimSpace(t.Word))
		if word == "" || word == freeWord || used.Has(word) {
			continue
		}
		used.Put(word)
		out = append(out, Topic{Word: word, ImageDescription: normalizeDescription(t.ImageDescription)})
	}

	words := vocabulary()
	rng.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	for _, w := range words {
		if len(out) == topicCount {
			break
		}
		if used.Has(w) {
			continue
		}
		used.Put(w)
		out = append(out, Topic{Word: w, ImageDescription: imageDescriptions[w]})
	}
	return out
}

// boardTopics lays 24 topics out on the board with the free cell in the
// centre.
func boardTopics(topics []Topic) []Topic {
	out := make([]Topic, 0, cellCount)
	out = append(out, topics[:freeIndex]...)
	out = append(out, Topic{Word: freeWord, ImageDescription: freeDescription})
	return append(out, topics[freeIndex:topicCount]...)
}

// Reasons shown to players when a board uses the built-in words.
const (
	reasonNoReference   = "No scripture reference was given"
	reasonNoSource      = "Topic generation is not configured"
	reasonSourceFailed  = "Topic generation failed"
	reasonSourceTimeout = "Topic generation timed out"
)

// fetchTopics asks src for topics and falls back to the local vocabulary when
// no reference is given or the source fails. The result always holds
// topicCount unique entries. fallback is empty when the source answered and
// says why otherwise.
func fetchTopics(ctx context.Context, src TopicSource, reference string, rng *rand.Rand) (topics []Topic, fallback string, err error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return localTopics(rng), reasonNoReference, nil
	}
	if src == nil {
		return localTopics(rng), reasonNoSource, nil
	}
	topics, err = src.Topics(ctx, reference)
	if errors.Is(err, context.DeadlineExceeded) {
		return localTopics(rng), reasonSourceTimeout, err
	}
	if err != nil {
		return localTopics(rng), reasonSourceFailed, err
	}
	return completeTopics(topics, rng), "", nil
}
