package wheel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const apiTimeout = 15 * time.Second

// Resolver talks to the release host. The zero value targets GitHub;
// tests point the bases at a local server.
type Resolver struct {
	Client       *http.Client
	APIBase      string // default "https://api.github.com"
	DownloadBase string // default "https://github.com"
}

func (r *Resolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return &http.Client{Timeout: apiTimeout}
}

func (r *Resolver) apiBase() string {
	if r.APIBase != "" {
		return r.APIBase
	}
	return "https://api.github.com"
}

func (r *Resolver) downloadBase() string {
	if r.DownloadBase != "" {
		return r.DownloadBase
	}
	return "https://github.com"
}

// WheelURL returns the release download URL for the wheel.
func (r *Resolver) WheelURL(releaseTag string, t Tags) string {
	return fmt.Sprintf("%s/%s/releases/download/%s/%s",
		r.downloadBase(), GithubRepo, releaseTag, assetName(releaseTag, t))
}

// LatestReleaseTag asks the release API for the newest tag. Callers fall
// back to DefaultReleaseTag on any error.
func (r *Resolver) LatestReleaseTag(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", r.apiBase(), GithubRepo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := r.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch latest release: unexpected status %s", resp.Status)
	}

	var payload struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode release response: %w", err)
	}
	if payload.TagName == "" {
		return "", fmt.Errorf("release response did not include tag_name")
	}
	return payload.TagName, nil
}

// ResolveTag returns the latest release tag, or pinned when the lookup
// fails. The lookup error is returned alongside the fallback so callers
// can report it; the returned tag is always usable.
func (r *Resolver) ResolveTag(ctx context.Context, pinned string) (string, error) {
	tag, err := r.LatestReleaseTag(ctx)
	if err != nil {
		return pinned, err
	}
	return tag, nil
}

// Exists checks whether a wheel asset is actually published. A 404 means
// no wheel matches this runtime; other failures propagate.
func (r *Resolver) Exists(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("build asset request: %w", err)
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return false, fmt.Errorf("check wheel asset: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("check wheel asset: unexpected status %s", resp.Status)
	default:
		return true, nil
	}
}
