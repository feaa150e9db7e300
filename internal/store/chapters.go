package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var chapterFileRe = regexp.MustCompile(`^chapter-(\d{4})\.md$`)

// ChapterStore holds raw chapter text as markdown files, one per chapter,
// named chapter-NNNN.md. Chapters are 1-based and immutable once written;
// this engine only reads them back.
type ChapterStore struct {
	dir string
}

// NewChapterStore creates the chapter directory if needed.
func NewChapterStore(dir string) (*ChapterStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &ChapterStore{dir: dir}, nil
}

// RawText returns the raw text of a chapter. Returns ErrNotFound for
// chapters that have not been written.
func (s *ChapterStore) RawText(chapter int) (string, error) {
	data, err := os.ReadFile(s.path(chapter))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: chapter %d", ErrNotFound, chapter)
		}
		return "", err
	}
	return string(data), nil
}

// Write stores the text for a chapter.
func (s *ChapterStore) Write(chapter int, text string) error {
	if chapter < 1 {
		return fmt.Errorf("store: chapter index must be at least 1, got %d", chapter)
	}
	return os.WriteFile(s.path(chapter), []byte(text), 0644)
}

// Latest returns the highest chapter index present, or 0 when the store is
// empty.
func (s *ChapterStore) Latest() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	latest := 0
	for _, e := range entries {
		m := chapterFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > latest {
			latest = n
		}
	}
	return latest, nil
}

func (s *ChapterStore) path(chapter int) string {
	return filepath.Join(s.dir, fmt.Sprintf("chapter-%04d.md", chapter))
}
