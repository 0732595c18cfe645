package localfs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ImageDir resolves figure names to image files. Candidates are tried in
// order: <name>.png, <name>.jpg, figure_<name>.png, with spaces in the name
// replaced by underscores.
type ImageDir struct {
	dir string
}

func NewImageDir(dir string) (*ImageDir, error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		slog.Warn("image_dir_missing", "dir", dir)
	case err != nil:
		return nil, fmt.Errorf("stat image dir: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("image dir %s is not a directory", dir)
	}
	return &ImageDir{dir: dir}, nil
}

func (d *ImageDir) Resolve(figure string) (string, bool) {
	for _, candidate := range imageCandidates(figure) {
		path := filepath.Join(d.dir, candidate)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

func imageCandidates(figure string) []string {
	base := strings.ReplaceAll(figure, " ", "_")
	if base == "" || strings.ContainsAny(base, `/\`) {
		return nil
	}
	return []string{
		base + ".png",
		base + ".jpg",
		"figure_" + base + ".png",
	}
}
