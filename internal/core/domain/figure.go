package domain

import "sort"

// FigureRecord is one entry of the figures file.
type FigureRecord struct {
	Subchapter  string `json:"subchapter" yaml:"subchapter"`
	Figure      string `json:"figure" yaml:"figure"`
	Description string `json:"description" yaml:"description"`
}

// Figure is a figure record whose image was found on disk.
type Figure struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// SubchapterMap maps figures-index slots to subchapter names.
type SubchapterMap struct {
	names map[int]string
}

func NewSubchapterMap(names map[int]string) SubchapterMap {
	copied := make(map[int]string, len(names))
	for slot, name := range names {
		copied[slot] = name
	}
	return SubchapterMap{names: copied}
}

func (m SubchapterMap) Name(slot int) (string, bool) {
	name, ok := m.names[slot]
	return name, ok
}

func (m SubchapterMap) Len() int {
	return len(m.names)
}

// Slots returns the mapped slots in ascending order.
func (m SubchapterMap) Slots() []int {
	out := make([]int, 0, len(m.names))
	for slot := range m.names {
		out = append(out, slot)
	}
	sort.Ints(out)
	return out
}
