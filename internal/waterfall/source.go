package waterfall

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// Source yields a raw payload, sweep text or annotation JSON.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// NewSource picks an HTTP source for http(s) URLs and a file source otherwise.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &HTTPSource{URL: location}
	}
	return FileSource(location)
}

// FileSource reads a payload from the local filesystem.
type FileSource string

func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(string(s))
}

func (s FileSource) String() string {
	return string(s)
}

// HTTPSource downloads a payload with a GET request. Only 200 OK is accepted.
type HTTPSource struct {
	URL    string
	Client *http.Client // Defaults to a client with a 30s timeout
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return resp.Body, nil
}

func (s *HTTPSource) String() string {
	return s.URL
}
