package devices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/util"
)

type HTTPMethod = string

const (
	HTTPMethodGet  HTTPMethod = "GET"
	HTTPMethodHead HTTPMethod = "HEAD"
)

// ErrReadOnly is returned by writes to devices that cannot be written.
var ErrReadOnly = errors.New("device is read-only")

// HTTPSource contains http-specific device config fields
type HTTPSource struct {
	URL     string            `json:"url"`
	Method  *HTTPMethod       `json:"method,omitempty"` // Default is GET
	Headers map[string]string `json:"headers,omitempty"`
}

// HTTPClient is the subset of [*http.Client] the http device uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var defaultHTTPClient HTTPClient = http.DefaultClient

// HTTPProvider builds [HTTPDevice] payloads sharing one client.
type HTTPProvider struct {
	Client HTTPClient
}

func (p *HTTPProvider) NewDevice(cfg map[string]any) (treefs.DeviceNode, error) {
	var src HTTPSource
	if err := decodeConfig(cfg, &src); err != nil {
		return nil, err
	}
	dev, err := p.NewHTTPDevice(src)
	if err != nil {
		return nil, err
	}
	return treefs.NewDevice(dev, nil), nil
}

// NewHTTPDevice validates src and returns a device reading from it.
func (p *HTTPProvider) NewHTTPDevice(src HTTPSource) (*HTTPDevice, error) {
	u, err := validateURL(src.URL)
	if err != nil {
		return nil, err
	}
	src.URL = u
	client := p.Client
	if client == nil {
		client = defaultHTTPClient
	}
	return &HTTPDevice{config: src, client: client}, nil
}

func validateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("http device: missing url")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("http device: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("http device: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("http device: missing host in %q", trimmed)
	}
	if u.User != nil {
		return "", fmt.Errorf("http device: user info is not allowed in url")
	}
	return trimmed, nil
}

// HTTPDevice is a read-only remote blob. Size comes from a HEAD request and
// reads are Range requests.
type HTTPDevice struct {
	config HTTPSource
	client HTTPClient
}

func (h *HTTPDevice) URL() string { return h.config.URL }

func (h *HTTPDevice) newRequest(ctx context.Context, method HTTPMethod) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.config.URL, nil)
	if err != nil {
		return nil, err
	}

	// Add custom headers
	for k, v := range h.config.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (h *HTTPDevice) Size(ctx context.Context) (int64, error) {
	req, err := h.newRequest(ctx, HTTPMethodHead)
	if err != nil {
		return 0, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("http device: HEAD %s: %s", h.config.URL, resp.Status)
	}
	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

func (h *HTTPDevice) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	logger := util.GetLogger("Devices.HTTP")

	if len(p) == 0 {
		return 0, nil
	}
	req, err := h.newRequest(ctx, h.getMethod())
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	resp, err := h.client.Do(req)
	if err != nil {
		logger.Debug().Err(err).Str("url", h.config.URL).Msg("Range request failed")
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// server ignored the range; skip to the offset
		if _, err := io.CopyN(io.Discard, resp.Body, off); err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, err
		}
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	default:
		return 0, fmt.Errorf("http device: GET %s: %s", h.config.URL, resp.Status)
	}

	n, err := io.ReadFull(resp.Body, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	logger.Trace().Str("url", h.config.URL).Int64("offset", off).Int("n", n).Msg("Read range")
	return n, err
}

func (h *HTTPDevice) WriteAt([]byte, int64) (int, error) {
	return 0, ErrReadOnly
}

func (h *HTTPDevice) getMethod() HTTPMethod {
	if h.config.Method != nil {
		return *h.config.Method
	}
	return HTTPMethodGet
}

var _ Reader = (*HTTPDevice)(nil)
