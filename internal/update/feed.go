// Package update checks a release feed for a newer repozip, downloads the
// matching asset and hands it to the platform installer.
package update

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/osvaldoandrade/repozip/internal/transport"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"golang.org/x/mod/semver"
)

type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
	Size int64  `json:"size"`
}

// Release is the subset of a GitHub-style release document repozip reads.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name,omitempty"`
	HTMLURL string  `json:"html_url,omitempty"`
	Assets  []Asset `json:"assets"`
}

type Feed struct {
	client *transport.Client
}

// NewFeed returns a Feed reading feedURL. Feed requests carry no API key and
// no client-side timeout.
func NewFeed(feedURL string) *Feed {
	return &Feed{client: transport.New(feedURL, "", 0)}
}

func NewFeedWithClient(c *transport.Client) *Feed {
	return &Feed{client: c}
}

// Latest fetches the newest published release.
func (f *Feed) Latest(ctx context.Context) (Release, error) {
	req, err := f.client.NewRequest(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do("fetch release feed", req)
	if err != nil {
		return Release{}, err
	}
	if !resp.OK() {
		return Release{}, domain.Rejected("fetch release feed", resp.Status, strings.TrimSpace(string(resp.Body)))
	}
	var rel Release
	if err := json.Unmarshal(resp.Body, &rel); err != nil {
		return Release{}, domain.Wrap(domain.KindProtocol, "decode release feed", err)
	}
	if strings.TrimSpace(rel.TagName) == "" {
		return Release{}, domain.Errorf(domain.KindProtocol, "decode release feed", "release has no tag_name")
	}
	return rel, nil
}

// Canonical returns v as a semver string with a leading "v", or "" when v is
// not a valid version.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// Newer reports whether latest is a newer version than current. Development
// builds with no valid version always see a valid release as newer.
func Newer(current, latest string) bool {
	l := Canonical(latest)
	if l == "" {
		return false
	}
	c := Canonical(current)
	if c == "" {
		return true
	}
	return semver.Compare(l, c) > 0
}

// Available describes a release newer than the running build.
type Available struct {
	Current string
	Release Release
	Asset   Asset
	// HasAsset is false when the release ships nothing for this platform.
	HasAsset bool
}

// Check fetches the latest release and reports whether it supersedes current.
func (f *Feed) Check(ctx context.Context, current, goos, goarch string) (Available, bool, error) {
	rel, err := f.Latest(ctx)
	if err != nil {
		return Available{}, false, err
	}
	if !Newer(current, rel.TagName) {
		return Available{Current: current, Release: rel}, false, nil
	}
	asset, ok := SelectAsset(rel.Assets, goos, goarch)
	return Available{Current: current, Release: rel, Asset: asset, HasAsset: ok}, true, nil
}
