package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "journals/1.0 (feed reader)"
	maxRedirects     = 10
	// DefaultMaxBodyBytes caps how much of a response or file is read.
	DefaultMaxBodyBytes = 8 << 20
)

var (
	// ErrFetch marks network and file failures.
	ErrFetch = errors.New("fetch failed")
	// ErrTooLarge is wrapped when a body exceeds the configured cap.
	ErrTooLarge = errors.New("body too large")
)

// Error describes a failed fetch of a URL or file.
type Error struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: %d %s", e.Source, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrFetch
}

// Options configure a Fetcher.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int
}

// Fetcher retrieves feed documents and article pages.
type Fetcher struct {
	client  *resty.Client
	maxBody int
	log     *zap.Logger
}

// New creates a Fetcher. Zero options take defaults.
func New(opts Options, log *zap.Logger) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("User-Agent", opts.UserAgent).
		SetResponseBodyLimit(opts.MaxBodyBytes)

	return &Fetcher{client: client, maxBody: opts.MaxBodyBytes, log: log}
}

// Fetch performs a GET and returns the body as text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		f.log.Info("response body too large", zap.String("url", url), zap.Int("limit", f.maxBody))
		return "", &Error{Source: url, Err: fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBody)}
	}
	if err != nil {
		f.log.Debug("fetch failed", zap.String("url", url), zap.Error(err))
		return "", &Error{Source: url, Err: err}
	}

	if resp.StatusCode() >= 400 {
		f.log.Debug("fetch returned error status", zap.String("url", url), zap.Int("status", resp.StatusCode()))
		return "", &Error{Source: url, StatusCode: resp.StatusCode(), Err: errors.New(resp.Status())}
	}

	body := resp.Body()
	f.log.Debug("fetched",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode()),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return string(body), nil
}

// ReadFile loads a feed document from local storage.
func (f *Fetcher) ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &Error{Source: path, Err: err}
	}
	if info.Size() > int64(f.maxBody) {
		return "", &Error{Source: path, Err: fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBody)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Source: path, Err: err}
	}
	return string(data), nil
}
