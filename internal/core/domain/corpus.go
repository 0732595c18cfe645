package domain

import "strings"

// NormalizeTitle is the single canonical form used for exact matching, both
// for stored titles and for incoming queries.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// KnowledgeBase keeps the knowledge file in document order:
// chapter -> title -> passage text.
type KnowledgeBase []KnowledgeChapter

type KnowledgeChapter struct {
	Name   string
	Topics []KnowledgeTopic
}

type KnowledgeTopic struct {
	Title   string
	Content string
}

// MetadataRecord is one line of the metadata file. Its position in the file
// is the vector slot it describes.
type MetadataRecord struct {
	Title   string `json:"title" yaml:"title"`
	Chapter string `json:"chapter" yaml:"chapter"`
}

type PassageKey struct {
	Chapter string
	Title   string
}

func KeyOf(chapter, title string) PassageKey {
	return PassageKey{Chapter: chapter, Title: NormalizeTitle(title)}
}

type Passage struct {
	Chapter string `json:"chapter"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TitleEntry pairs a metadata record with the vector slot it owns.
type TitleEntry struct {
	Slot       int
	Title      string
	Chapter    string
	Normalized string
}

func (e TitleEntry) Key() PassageKey {
	return PassageKey{Chapter: e.Chapter, Title: e.Normalized}
}

// Corpus is the read-only text side of the retrieval engine. It is built
// once at start-up and shared by all requests without locking.
type Corpus struct {
	passages   map[PassageKey]Passage
	entries    []TitleEntry
	duplicates int
}

// NewCorpus indexes the knowledge base by (chapter, normalized title) and
// assigns metadata records their slots. Duplicate passage keys keep the last
// occurrence in document order.
func NewCorpus(kb KnowledgeBase, metadata []MetadataRecord) *Corpus {
	c := &Corpus{
		passages: make(map[PassageKey]Passage),
		entries:  make([]TitleEntry, 0, len(metadata)),
	}
	for _, chapter := range kb {
		for _, topic := range chapter.Topics {
			key := KeyOf(chapter.Name, topic.Title)
			if _, exists := c.passages[key]; exists {
				c.duplicates++
			}
			c.passages[key] = Passage{
				Chapter: chapter.Name,
				Title:   topic.Title,
				Content: topic.Content,
			}
		}
	}
	for slot, record := range metadata {
		c.entries = append(c.entries, TitleEntry{
			Slot:       slot,
			Title:      record.Title,
			Chapter:    record.Chapter,
			Normalized: NormalizeTitle(record.Title),
		})
	}
	return c
}

// Lookup returns the passage stored under the key. Empty content counts as absent.
func (c *Corpus) Lookup(chapter, normalizedTitle string) (Passage, bool) {
	p, ok := c.passages[PassageKey{Chapter: chapter, Title: normalizedTitle}]
	if !ok || p.Content == "" {
		return Passage{}, false
	}
	return p, true
}

func (c *Corpus) Resolve(entry TitleEntry) (Passage, bool) {
	return c.Lookup(entry.Chapter, entry.Normalized)
}

// Entries returns the title entries in slot order. Callers must not modify it.
func (c *Corpus) Entries() []TitleEntry {
	return c.entries
}

func (c *Corpus) Entry(slot int) (TitleEntry, bool) {
	if slot < 0 || slot >= len(c.entries) {
		return TitleEntry{}, false
	}
	return c.entries[slot], true
}

func (c *Corpus) Len() int {
	return len(c.entries)
}

func (c *Corpus) PassageCount() int {
	return len(c.passages)
}

func (c *Corpus) DuplicateKeys() int {
	return c.duplicates
}

// MetadataFromKnowledge lists every topic of the knowledge base in document
// order, which is the slot order the index builder uses.
func MetadataFromKnowledge(kb KnowledgeBase) []MetadataRecord {
	out := make([]MetadataRecord, 0)
	for _, chapter := range kb {
		for _, topic := range chapter.Topics {
			out = append(out, MetadataRecord{Title: topic.Title, Chapter: chapter.Name})
		}
	}
	return out
}
