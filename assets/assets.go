// Package assets fetches the font and logo files a letter is rendered with.
// Sources are local paths or http(s) URLs. A source that cannot be read is
// reported and left empty so rendering falls back to built-in assets.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/wudi/letterkit/letter"
	"github.com/wudi/letterkit/observability"
)

var (
	ErrFetchFailed = errors.New("asset fetch failed")
	ErrTooLarge    = errors.New("asset exceeds size limit")
)

// Role names the slot an asset fills.
type Role int

const (
	RoleBodyFont Role = iota
	RoleHeadingFont
	RoleLogo
)

func (r Role) String() string {
	switch r {
	case RoleBodyFont:
		return "body-font"
	case RoleHeadingFont:
		return "heading-font"
	case RoleLogo:
		return "logo"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Sources locates each asset. Empty entries are skipped.
type Sources struct {
	BodyFont    string
	HeadingFont string
	Logo        string
}

func (s Sources) byRole() map[Role]string {
	return map[Role]string{
		RoleBodyFont:    s.BodyFont,
		RoleHeadingFont: s.HeadingFont,
		RoleLogo:        s.Logo,
	}
}

// Bundle holds fetched asset bytes. Failed or skipped roles are nil and
// listed in Errors.
type Bundle struct {
	Fonts  letter.Fonts
	Logo   []byte
	Errors map[Role]error
}

// Config configures a Loader.
type Config struct {
	// Timeout bounds each HTTP fetch.
	Timeout time.Duration
	// MaxSize is the largest accepted asset in bytes.
	MaxSize   int64
	UserAgent string
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// DefaultConfig returns the loader defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:   10 * time.Second,
		MaxSize:   16 << 20,
		UserAgent: "letterkit/1.0",
	}
}

// Loader reads assets from disk or over HTTP.
type Loader struct {
	cfg    Config
	client *http.Client
	log    observability.Logger
}

// NewLoader returns a Loader. Zero config fields take their defaults.
func NewLoader(cfg Config, log observability.Logger) *Loader {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Loader{cfg: cfg, client: client, log: observability.OrNop(log)}
}

// Load fetches every non-empty source concurrently. It never fails as a
// whole: each failure is logged and recorded in Bundle.Errors.
func (l *Loader) Load(ctx context.Context, src Sources) *Bundle {
	type result struct {
		role Role
		data []byte
		err  error
	}
	sources := src.byRole()
	results := make(chan result, len(sources))

	var wg sync.WaitGroup
	for role, location := range sources {
		if strings.TrimSpace(location) == "" {
			continue
		}
		wg.Add(1)
		go func(role Role, location string) {
			defer wg.Done()
			data, err := l.Fetch(ctx, location)
			results <- result{role: role, data: data, err: err}
		}(role, location)
	}
	wg.Wait()
	close(results)

	b := &Bundle{Errors: map[Role]error{}}
	for r := range results {
		if r.err != nil {
			l.log.Warn("asset unavailable, using built-in fallback",
				observability.String("asset", r.role.String()),
				observability.String("source", sources[r.role]),
				observability.Error("error", r.err))
			b.Errors[r.role] = r.err
			continue
		}
		l.log.Debug("asset loaded",
			observability.String("asset", r.role.String()),
			observability.Int("bytes", len(r.data)))
		switch r.role {
		case RoleBodyFont:
			b.Fonts.Body = r.data
		case RoleHeadingFont:
			b.Fonts.Heading = r.data
		case RoleLogo:
			b.Logo = r.data
		}
	}
	return b
}

// Fetch reads one asset from a path, a file:// URL or an http(s) URL.
func (l *Loader) Fetch(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	u, err := url.Parse(location)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return l.fetchHTTP(ctx, location)
		case "file":
			location = u.Path
		}
	}
	return l.readFile(location)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *Loader) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", l.cfg.UserAgent)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetchFailed, location, resp.Status)
	}
	return l.readLimited(resp.Body)
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.cfg.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > l.cfg.MaxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.cfg.MaxSize)
	}
	return data, nil
}
