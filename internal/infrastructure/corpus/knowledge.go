package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// DecodeKnowledgeJSON walks the token stream so chapters and titles keep
// their document order, which a Go map would lose.
func DecodeKnowledgeJSON(r io.Reader) (domain.KnowledgeBase, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("knowledge root: %w", err)
	}

	kb := domain.KnowledgeBase{}
	for dec.More() {
		chapterName, err := readKey(dec)
		if err != nil {
			return nil, fmt.Errorf("chapter name: %w", err)
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("chapter %q: %w", chapterName, err)
		}

		chapter := domain.KnowledgeChapter{Name: chapterName}
		for dec.More() {
			title, err := readKey(dec)
			if err != nil {
				return nil, fmt.Errorf("chapter %q title: %w", chapterName, err)
			}
			var content string
			if err := dec.Decode(&content); err != nil {
				return nil, fmt.Errorf("chapter %q title %q: %w", chapterName, title, err)
			}
			chapter.Topics = append(chapter.Topics, domain.KnowledgeTopic{Title: title, Content: content})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, fmt.Errorf("chapter %q: %w", chapterName, err)
		}
		kb = append(kb, chapter)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("knowledge root: %w", err)
	}
	return kb, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// DecodeKnowledgeYAML reads the same chapter -> title -> text shape from YAML,
// in document order.
func DecodeKnowledgeYAML(r io.Reader) (domain.KnowledgeBase, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.KnowledgeBase{}, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return domain.KnowledgeBase{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("knowledge root: expected mapping at line %d", root.Line)
	}

	kb := domain.KnowledgeBase{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if valueNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("chapter %q: expected mapping at line %d", keyNode.Value, valueNode.Line)
		}
		chapter := domain.KnowledgeChapter{Name: keyNode.Value}
		for j := 0; j+1 < len(valueNode.Content); j += 2 {
			titleNode, contentNode := valueNode.Content[j], valueNode.Content[j+1]
			var content string
			if err := contentNode.Decode(&content); err != nil {
				return nil, fmt.Errorf("chapter %q title %q: %w", keyNode.Value, titleNode.Value, err)
			}
			chapter.Topics = append(chapter.Topics, domain.KnowledgeTopic{Title: titleNode.Value, Content: content})
		}
		kb = append(kb, chapter)
	}
	return kb, nil
}
