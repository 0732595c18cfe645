package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDecodeKnowledgeJSONKeepsDocumentOrder(t *testing.T) {
	kb, err := DecodeKnowledgeJSON(strings.NewReader(`{
		"Zoology": {"Worms": "w", "Ants": "a"},
		"Botany": {"Roots": "r"}
	}`))
	if err != nil {
		t.Fatalf("DecodeKnowledgeJSON() error = %v", err)
	}
	if len(kb) != 2 || kb[0].Name != "Zoology" || kb[1].Name != "Botany" {
		t.Fatalf("unexpected chapters %+v", kb)
	}
	if kb[0].Topics[0].Title != "Worms" || kb[0].Topics[1].Title != "Ants" || kb[0].Topics[1].Content != "a" {
		t.Fatalf("unexpected topics %+v", kb[0].Topics)
	}
}

func TestDecodeKnowledgeJSONRejectsWrongShape(t *testing.T) {
	cases := []string{
		`[]`,
		`{"Ch1": ["not", "a", "mapping"]}`,
		`{"Ch1": {"Title": 42}}`,
		`{"Ch1": {"Title": "x"}`,
	}
	for _, body := range cases {
		if _, err := DecodeKnowledgeJSON(strings.NewReader(body)); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

func TestDecodeKnowledgeYAMLKeepsDocumentOrder(t *testing.T) {
	kb, err := DecodeKnowledgeYAML(strings.NewReader(`
Zoology:
  Worms: w
  Ants: |
    ants live in colonies
Botany:
  Roots: r
`))
	if err != nil {
		t.Fatalf("DecodeKnowledgeYAML() error = %v", err)
	}
	if len(kb) != 2 || kb[0].Name != "Zoology" || kb[1].Topics[0].Title != "Roots" {
		t.Fatalf("unexpected knowledge %+v", kb)
	}
	if kb[0].Topics[1].Content != "ants live in colonies\n" {
		t.Fatalf("unexpected content %q", kb[0].Topics[1].Content)
	}
}

func TestLoadCorpusFromFiles(t *testing.T) {
	dir := t.TempDir()
	knowledge := writeFile(t, dir, "knowledgebase.json", `{"Ch1": {"Cells": "Cells are...", "cells ": "shadow"}}`)
	metadata := writeFile(t, dir, "metadata.json", `[{"title": "Cells", "chapter": "Ch1"}]`)

	corpus, err := LoadCorpus(knowledge, metadata)
	if err != nil {
		t.Fatalf("LoadCorpus() error = %v", err)
	}
	if corpus.Len() != 1 || corpus.DuplicateKeys() != 1 {
		t.Fatalf("unexpected corpus len=%d dup=%d", corpus.Len(), corpus.DuplicateKeys())
	}
	p, ok := corpus.Lookup("Ch1", "cells")
	if !ok || p.Content != "shadow" {
		t.Fatalf("expected last write to win, got %+v", p)
	}
}

func TestLoadMetadataAndFiguresYAML(t *testing.T) {
	dir := t.TempDir()
	metadata := writeFile(t, dir, "metadata.yaml", "- title: Cells\n  chapter: Ch1\n- title: Roots\n  chapter: Ch2\n")
	figures := writeFile(t, dir, "figures.yml", "- subchapter: Cells\n  figure: Figure 1.1\n  description: a cell\n")

	records, err := LoadMetadata(metadata)
	if err != nil {
		t.Fatalf("LoadMetadata() error = %v", err)
	}
	if len(records) != 2 || records[1] != (domain.MetadataRecord{Title: "Roots", Chapter: "Ch2"}) {
		t.Fatalf("unexpected metadata %+v", records)
	}

	figs, err := LoadFigures(figures)
	if err != nil {
		t.Fatalf("LoadFigures() error = %v", err)
	}
	if len(figs) != 1 || figs[0].Figure != "Figure 1.1" || figs[0].Description != "a cell" {
		t.Fatalf("unexpected figures %+v", figs)
	}
}

func TestLoadSubchapterMap(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "subchapter_metadata.json", `{"0": "Cells", "2": "Roots"}`)

	m, err := LoadSubchapterMap(path)
	if err != nil {
		t.Fatalf("LoadSubchapterMap() error = %v", err)
	}
	if name, ok := m.Name(2); !ok || name != "Roots" {
		t.Fatalf("unexpected slot 2 %q", name)
	}
	if _, ok := m.Name(1); ok {
		t.Fatalf("slot 1 must be unmapped")
	}

	bad := writeFile(t, dir, "bad.json", `{"zero": "Cells"}`)
	if _, err := LoadSubchapterMap(bad); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadKnowledge(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEncodeSubchapterMapRoundTripsThroughLoader(t *testing.T) {
	var buf bytes.Buffer
	original := domain.NewSubchapterMap(map[int]string{10: "Roots", 2: `Cells "basic"`})
	if err := EncodeSubchapterMap(&buf, original); err != nil {
		t.Fatalf("EncodeSubchapterMap() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "{\n  \"2\": ") {
		t.Fatalf("expected slot order, got %s", buf.String())
	}

	path := writeFile(t, t.TempDir(), "subchapters.json", buf.String())
	loaded, err := LoadSubchapterMap(path)
	if err != nil {
		t.Fatalf("LoadSubchapterMap() error = %v", err)
	}
	if name, _ := loaded.Name(2); name != `Cells "basic"` {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestEncodeMetadata(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeMetadata(&buf, nil); err != nil {
		t.Fatalf("EncodeMetadata() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}
}
