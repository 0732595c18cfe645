package flat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
)

const (
	formatVersion = 1
	// Upper bound on floats accepted from a header, to reject corrupt files
	// before allocating.
	maxFloats = 1 << 30
)

var magic = [4]byte{'T', 'B', 'V', 'X'}

type header struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Count   uint32
}

// Index is an exhaustive in-memory cosine index. Vectors are stored
// normalized, slot i being the i-th vector of the file. It is read-only after
// construction and safe for concurrent use.
type Index struct {
	dim     int
	vectors [][]float32
}

func New(vectors [][]float32) (*Index, error) {
	idx := &Index{vectors: make([][]float32, 0, len(vectors))}
	for slot, v := range vectors {
		if slot == 0 {
			idx.dim = len(v)
		}
		if len(v) == 0 || len(v) != idx.dim {
			return nil, fmt.Errorf("vector %d: dimension %d, expected %d", slot, len(v), idx.dim)
		}
		idx.vectors = append(idx.vectors, normalized(v))
	}
	return idx, nil
}

// Open reads the index stored under key.
func Open(ctx context.Context, storage ports.ObjectStorage, key string) (*Index, error) {
	f, err := storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", key, err)
	}
	defer f.Close()

	idx, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decode index %s: %w", key, err)
	}
	return idx, nil
}

func Decode(r io.Reader) (*Index, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != magic {
		return nil, errors.New("not a flat vector index")
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("unsupported index version %d", h.Version)
	}
	if h.Count > 0 && h.Dim == 0 {
		return nil, errors.New("zero dimension with non-empty index")
	}
	if uint64(h.Dim)*uint64(h.Count) > maxFloats {
		return nil, fmt.Errorf("index too large: %d x %d", h.Count, h.Dim)
	}

	vectors := make([][]float32, h.Count)
	for i := range vectors {
		v := make([]float32, h.Dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors[i] = v
	}
	idx, err := New(vectors)
	if err != nil {
		return nil, err
	}
	idx.dim = int(h.Dim)
	return idx, nil
}

// Encode writes vectors as given; normalization happens on load.
func Encode(w io.Writer, vectors [][]float32) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return fmt.Errorf("vector %d: dimension %d, expected %d", i, len(v), dim)
		}
	}

	h := header{Magic: magic, Version: formatVersion, Dim: uint32(dim), Count: uint32(len(vectors))}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, v := range vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

func (i *Index) Dim() int {
	return i.dim
}

func (i *Index) Count(context.Context) (int, error) {
	return len(i.vectors), nil
}

// Search returns up to k slots by ascending 1 - cosine distance; ties go to
// the lower slot.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]domain.Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || len(i.vectors) == 0 {
		return []domain.Neighbor{}, nil
	}
	if len(query) != i.dim {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"flat index search",
			fmt.Errorf("query dimension %d, index dimension %d", len(query), i.dim),
		)
	}

	q := normalized(query)
	all := make([]domain.Neighbor, len(i.vectors))
	for slot, v := range i.vectors {
		all[slot] = domain.Neighbor{Slot: slot, Distance: 1 - dot(q, v)}
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Distance < all[b].Distance
	})
	if k > len(all) {
		k = len(all)
	}
	return all[:k], nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalized(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Writer persists a flat index through object storage.
type Writer struct {
	storage ports.ObjectStorage
	key     string
}

func NewWriter(storage ports.ObjectStorage, key string) *Writer {
	return &Writer{storage: storage, key: key}
}

func (w *Writer) WriteVectors(ctx context.Context, vectors [][]float32) error {
	var buf bytes.Buffer
	if err := Encode(&buf, vectors); err != nil {
		return err
	}
	if err := w.storage.Save(ctx, w.key, &buf); err != nil {
		return fmt.Errorf("save index %s: %w", w.key, err)
	}
	return nil
}
