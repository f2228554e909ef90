package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html/charset"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 5 << 20
	defaultUserAgent = "webpage-chat/1.0"
)

type Options struct {
	Timeout    time.Duration
	MaxBytes   int64
	UserAgent  string
	HTTPClient *http.Client
}

// Loader fetches one webpage over HTTP and extracts its readable text.
type Loader struct {
	httpClient *http.Client
	maxBytes   int64
	userAgent  string
}

func New(options Options) *Loader {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := options.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	userAgent := strings.TrimSpace(options.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := options.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Loader{
		httpClient: client,
		maxBytes:   maxBytes,
		userAgent:  userAgent,
	}
}

func (l *Loader) Load(ctx context.Context, rawURL string) (*domain.Document, error) {
	target, err := parseTarget(rawURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrFetch, "load page", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrFetch, "load page", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.1")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrFetch, "load page", fmt.Errorf("get %s: %w", target.Redacted(), err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrFetch, "load page", fmt.Errorf("get %s status: %s", target.Redacted(), resp.Status))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, domain.WrapError(domain.ErrFetch, "load page", fmt.Errorf("read body: %w", err))
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(raw)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, domain.WrapError(domain.ErrFetch, "load page", fmt.Errorf("parse content type %q: %w", contentType, err))
	}

	body, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, domain.WrapError(domain.ErrFetch, "load page", fmt.Errorf("decode charset: %w", err))
	}

	var title, text string
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		title, text, err = extractHTML(body)
	case strings.HasPrefix(mediaType, "text/"):
		text, err = extractPlainText(body)
	default:
		err = fmt.Errorf("unsupported content type %q", mediaType)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrFetch, "load page", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrFetch, "load page", errors.New("page has no readable text"))
	}

	return &domain.Document{
		ID:          uuid.NewString(),
		URL:         target.String(),
		Title:       title,
		ContentType: mediaType,
		Content:     text,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func parseTarget(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("url is empty")
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", target.Scheme)
	}
	if target.Host == "" {
		return nil, errors.New("url has no host")
	}
	return target, nil
}
