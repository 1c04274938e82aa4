package filter

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteFilter is an open-stage filter that fetches a source's content
// over HTTP instead of reading it from disk. The pipeline applies it
// implicitly to URL sources; bundles may also list it explicitly to
// fetch path-like sources from a CDN mirror.
type RemoteFilter struct {
	client *http.Client
}

// NewRemote returns a remote filter with the given client. A nil
// client gets a 30s-timeout default.
func NewRemote(client *http.Client) *RemoteFilter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteFilter{client: client}
}

// NewRemoteFactory constructs the filter from registry options.
func NewRemoteFactory(map[string]string) (Filter, error) {
	return NewRemote(nil), nil
}

// Name returns the registry identifier.
func (f *RemoteFilter) Name() string { return "remote" }

// Fingerprint returns the configuration fingerprint.
func (f *RemoteFilter) Fingerprint() string { return "remote" }

// Open fetches the source over HTTP.
func (f *RemoteFilter) Open(src Source) ([]byte, error) {
	resp, err := f.client.Get(src.Path)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", src.Path, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src.Path, err)
	}
	return data, nil
}
