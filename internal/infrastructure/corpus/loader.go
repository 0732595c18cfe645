package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

func LoadKnowledge(path string) (domain.KnowledgeBase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	var kb domain.KnowledgeBase
	if isYAML(path) {
		kb, err = DecodeKnowledgeYAML(bytes.NewReader(raw))
	} else {
		kb, err = DecodeKnowledgeJSON(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("decode knowledge file %s: %w", path, err)
	}
	return kb, nil
}

func LoadMetadata(path string) ([]domain.MetadataRecord, error) {
	var records []domain.MetadataRecord
	if err := decodeFile(path, &records); err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	return records, nil
}

func LoadFigures(path string) ([]domain.FigureRecord, error) {
	var records []domain.FigureRecord
	if err := decodeFile(path, &records); err != nil {
		return nil, fmt.Errorf("load figures: %w", err)
	}
	return records, nil
}

// LoadSubchapterMap reads {"<slot>": "<subchapter>"}. Keys must be decimal slots.
func LoadSubchapterMap(path string) (domain.SubchapterMap, error) {
	var raw map[string]string
	if err := decodeFile(path, &raw); err != nil {
		return domain.SubchapterMap{}, fmt.Errorf("load subchapter map: %w", err)
	}
	names := make(map[int]string, len(raw))
	for key, name := range raw {
		slot, err := strconv.Atoi(key)
		if err != nil || slot < 0 {
			return domain.SubchapterMap{}, domain.WrapError(
				domain.ErrInvalidInput,
				"load subchapter map",
				fmt.Errorf("key %q is not a slot number", key),
			)
		}
		names[slot] = name
	}
	return domain.NewSubchapterMap(names), nil
}

// LoadCorpus builds the text corpus and reports duplicate passage keys,
// which shadow earlier passages in file order.
func LoadCorpus(knowledgePath, metadataPath string) (*domain.Corpus, error) {
	kb, err := LoadKnowledge(knowledgePath)
	if err != nil {
		return nil, err
	}
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	corpus := domain.NewCorpus(kb, metadata)
	if dup := corpus.DuplicateKeys(); dup > 0 {
		slog.Warn("duplicate_passage_key", "count", dup, "policy", "last_write_wins", "path", knowledgePath)
	}
	slog.Info("corpus_loaded",
		"passages", corpus.PassageCount(),
		"titles", corpus.Len(),
		"knowledge_path", knowledgePath,
		"metadata_path", metadataPath,
	)
	return corpus, nil
}

func decodeFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if isYAML(path) {
		if err := yaml.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// EncodeMetadata writes the metadata records as an indented JSON array.
func EncodeMetadata(w io.Writer, records []domain.MetadataRecord) error {
	if records == nil {
		records = []domain.MetadataRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return nil
}

// EncodeSubchapterMap writes the map with decimal string keys, in slot order.
func EncodeSubchapterMap(w io.Writer, subchapters domain.SubchapterMap) error {
	slots := subchapters.Slots()

	var buf bytes.Buffer
	buf.WriteString("{")
	for i, slot := range slots {
		name, _ := subchapters.Name(slot)
		encoded, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("encode subchapter %d: %w", slot, err)
		}
		if i > 0 {
			buf.WriteString(",")
		}
		fmt.Fprintf(&buf, "\n  %q: %s", strconv.Itoa(slot), encoded)
	}
	if len(slots) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write subchapter map: %w", err)
	}
	return nil
}
