package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirSource replays captured frames from a directory: *.jpg/*.jpeg files
// as screen frames and *.pcm files as raw PCM16LE audio chunks, each list
// in lexical order. The shorter list is padded with empty slots so both
// modalities advance together, and the source cycles when the longer list
// is exhausted.
type DirSource struct {
	mu     sync.Mutex
	images []string
	audio  []string
	index  int
}

func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}

	s := &DirSource{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			s.images = append(s.images, path)
		case ".pcm":
			s.audio = append(s.audio, path)
		}
	}
	sort.Strings(s.images)
	sort.Strings(s.audio)

	if len(s.images) == 0 && len(s.audio) == 0 {
		return nil, fmt.Errorf("replay dir %s holds no *.jpg or *.pcm files", dir)
	}
	return s, nil
}

func (s *DirSource) Next(_ context.Context) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := max(len(s.images), len(s.audio))
	if n == 0 {
		return Batch{}, io.EOF
	}
	i := s.index % n
	s.index++

	var b Batch
	var err error
	if i < len(s.images) {
		if b.Image, err = os.ReadFile(s.images[i]); err != nil {
			return Batch{}, fmt.Errorf("read frame %s: %w", s.images[i], err)
		}
	}
	if i < len(s.audio) {
		if b.Audio, err = os.ReadFile(s.audio[i]); err != nil {
			return Batch{}, fmt.Errorf("read audio %s: %w", s.audio[i], err)
		}
	}
	return b, nil
}
