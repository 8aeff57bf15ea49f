package playback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Fetcher streams the audio resource of a title.
type Fetcher interface {
	FetchAudio(ctx context.Context, title string, w io.Writer) error
}

// Cache downloads each title's clip once and hands out the local path.
// A finished download is the signal that the clip is ready to play.
type Cache struct {
	dir     string
	owned   bool
	fetcher Fetcher

	mu       sync.Mutex
	ready    map[string]string
	inflight map[string]*download
}

type download struct {
	done chan struct{}
	path string
	err  error
}

// NewCache stores clips in dir. An empty dir creates a temporary directory
// that Close removes.
func NewCache(dir string, f Fetcher) (*Cache, error) {
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "nounfill-audio-")
		if err != nil {
			return nil, fmt.Errorf("create audio cache: %w", err)
		}
		dir, owned = tmp, true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio cache %s: %w", dir, err)
	}
	return &Cache{
		dir:      dir,
		owned:    owned,
		fetcher:  f,
		ready:    make(map[string]string),
		inflight: make(map[string]*download),
	}, nil
}

func (c *Cache) cacheKey(title string) string {
	h := sha256.Sum256([]byte(title))
	return hex.EncodeToString(h[:16])
}

// Path returns the local file of title's clip, downloading it first if
// needed. Concurrent calls for the same title share one download. The
// download keeps the values of the first caller's ctx but not its
// cancellation, so a caller that gives up only stops its own wait.
func (c *Cache) Path(ctx context.Context, title string) (string, error) {
	c.mu.Lock()
	if p, ok := c.ready[title]; ok {
		c.mu.Unlock()
		return p, nil
	}
	d, ok := c.inflight[title]
	if !ok {
		d = &download{done: make(chan struct{})}
		c.inflight[title] = d
		go c.run(context.WithoutCancel(ctx), title, d)
	}
	c.mu.Unlock()

	select {
	case <-d.done:
		return d.path, d.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Cache) run(ctx context.Context, title string, d *download) {
	d.path, d.err = c.fetch(ctx, title)

	c.mu.Lock()
	delete(c.inflight, title)
	if d.err == nil {
		c.ready[title] = d.path
	}
	c.mu.Unlock()
	close(d.done)
}

func (c *Cache) fetch(ctx context.Context, title string) (string, error) {
	final := filepath.Join(c.dir, c.cacheKey(title)+".mp3")
	if _, err := os.Stat(final); err == nil {
		return final, nil
	}

	tmp, err := os.CreateTemp(c.dir, "partial-*.mp3")
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.fetcher.FetchAudio(ctx, title, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("store audio file: %w", err)
	}
	return final, nil
}

func (c *Cache) Dir() string {
	return c.dir
}

// Close removes the cache directory if NewCache created it.
func (c *Cache) Close() error {
	if !c.owned {
		return nil
	}
	return os.RemoveAll(c.dir)
}
