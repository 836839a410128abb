// Package hub is a minimal Black Duck REST client covering the three
// operations a split-and-scan run needs: ensuring the project version
// exists, un-mapping stale code locations before scanning, and waiting for
// scan processing to finish afterwards.
package hub

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/scansplit/scansplit/internal/errors"
	"github.com/scansplit/scansplit/internal/logging"
)

const (
	// defaultTimeout is the per-request timeout.
	defaultTimeout = 30 * time.Second

	// defaultMaxChecks bounds how many times WaitForScans polls one code
	// location before timing out (240 checks at 5s is 20 minutes).
	defaultMaxChecks = 240

	// defaultCheckDelay is the pause between polls.
	defaultCheckDelay = 5 * time.Second

	// unmapPasses bounds the unmap loop; code locations are fetched in
	// pages and re-listed until the mapping is empty.
	unmapPasses = 20
)

// Client defines the hub operations the runner depends on.
type Client interface {
	// EnsureProjectVersion creates the project and/or version if missing.
	EnsureProjectVersion(ctx context.Context, project, version string) error

	// UnmapCodeLocations removes all code location mappings from the
	// project version and returns how many were unmapped. Stale mappings
	// from previous runs would otherwise pollute the new results.
	UnmapCodeLocations(ctx context.Context, project, version string) (int, error)

	// WaitForScans blocks until every named code location has a scan
	// updated after since that reached a terminal state, or the poll
	// budget runs out.
	WaitForScans(ctx context.Context, codeLocations []string, since time.Time) error
}

// HTTPClient implements Client against the Black Duck REST API.
type HTTPClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	maxChecks  int
	checkDelay time.Duration
	log        *logging.Logger

	bearer string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithInsecure disables TLS certificate verification, matching hubs with
// self-signed certificates.
func WithInsecure() Option {
	return func(c *HTTPClient) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

// WithHTTPClient replaces the underlying http.Client, for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithPollPolicy sets how often and how long WaitForScans polls.
func WithPollPolicy(maxChecks int, delay time.Duration) Option {
	return func(c *HTTPClient) {
		if maxChecks > 0 {
			c.maxChecks = maxChecks
		}
		if delay > 0 {
			c.checkDelay = delay
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *HTTPClient) {
		c.log = log
	}
}

// NewHTTPClient creates a client for the hub at baseURL authenticating with
// the given API token.
func NewHTTPClient(baseURL, apiToken string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxChecks:  defaultMaxChecks,
		checkDelay: defaultCheckDelay,
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resource envelopes used by the hub API.

type meta struct {
	Href  string `json:"href"`
	Links []link `json:"links"`
}

// link finds a named relation, empty if absent.
func (m meta) link(rel string) string {
	for _, l := range m.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type project struct {
	Name string `json:"name"`
	Meta meta   `json:"_meta"`
}

type projectPage struct {
	Items []project `json:"items"`
}

type projectVersion struct {
	VersionName string `json:"versionName"`
	Meta        meta   `json:"_meta"`
}

type versionPage struct {
	Items []projectVersion `json:"items"`
}

type codeLocation struct {
	Name                 string `json:"name"`
	MappedProjectVersion string `json:"mappedProjectVersion"`
	Meta                 meta   `json:"_meta"`
}

type codeLocationPage struct {
	Items []codeLocation `json:"items"`
}

type scanSummary struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type scanSummaryPage struct {
	Items []scanSummary `json:"items"`
}

// authenticate exchanges the API token for a bearer token.
func (c *HTTPClient) authenticate(ctx context.Context) error {
	if c.bearer != "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/tokens/authenticate", nil)
	if err != nil {
		return errors.NewHubError("authenticate", 0, err)
	}
	req.Header.Set("Authorization", "token "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewHubError("authenticate", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewHubError("authenticate", resp.StatusCode,
			errors.New("token rejected"))
	}

	var body struct {
		BearerToken string `json:"bearerToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.NewHubError("authenticate", resp.StatusCode, err)
	}
	if body.BearerToken == "" {
		return errors.NewHubError("authenticate", resp.StatusCode,
			errors.New("empty bearer token"))
	}
	c.bearer = body.BearerToken
	return nil
}

// do performs an authenticated JSON request and decodes the response into
// out when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, op, method, rawURL string, payload, out any) error {
	if err := c.authenticate(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.NewHubError(op, 0, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return errors.NewHubError(op, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewHubError(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewHubError(op, resp.StatusCode,
			fmt.Errorf("%s %s failed", method, rawURL))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewHubError(op, resp.StatusCode, err)
	}
	return nil
}

// findProject returns the project with the exact name, or nil.
func (c *HTTPClient) findProject(ctx context.Context, name string) (*project, error) {
	query := url.Values{"q": {"name:" + name}, "limit": {"100"}}
	var page projectPage
	if err := c.do(ctx, "find project", http.MethodGet,
		c.baseURL+"/api/projects?"+query.Encode(), nil, &page); err != nil {
		return nil, err
	}
	for i := range page.Items {
		if page.Items[i].Name == name {
			return &page.Items[i], nil
		}
	}
	return nil, nil
}

// findVersion returns the named version of a project, or nil.
func (c *HTTPClient) findVersion(ctx context.Context, p *project, version string) (*projectVersion, error) {
	href := p.Meta.link("versions")
	if href == "" {
		return nil, errors.NewHubError("find version", 0,
			errors.New("project has no versions link"))
	}
	query := url.Values{"q": {"versionName:" + version}, "limit": {"100"}}
	var page versionPage
	if err := c.do(ctx, "find version", http.MethodGet,
		href+"?"+query.Encode(), nil, &page); err != nil {
		return nil, err
	}
	for i := range page.Items {
		if page.Items[i].VersionName == version {
			return &page.Items[i], nil
		}
	}
	return nil, nil
}

// EnsureProjectVersion creates the project and/or the version if missing.
func (c *HTTPClient) EnsureProjectVersion(ctx context.Context, projectName, versionName string) error {
	p, err := c.findProject(ctx, projectName)
	if err != nil {
		return err
	}

	if p == nil {
		c.log.Debug("creating project", "project", projectName, "version", versionName)
		payload := map[string]any{
			"name": projectName,
			"versionRequest": map[string]any{
				"versionName":  versionName,
				"phase":        "DEVELOPMENT",
				"distribution": "EXTERNAL",
			},
		}
		return c.do(ctx, "create project", http.MethodPost,
			c.baseURL+"/api/projects", payload, nil)
	}

	v, err := c.findVersion(ctx, p, versionName)
	if err != nil {
		return err
	}
	if v != nil {
		return nil
	}

	c.log.Debug("creating project version", "project", projectName, "version", versionName)
	payload := map[string]any{
		"versionName":  versionName,
		"phase":        "DEVELOPMENT",
		"distribution": "EXTERNAL",
	}
	return c.do(ctx, "create version", http.MethodPost,
		p.Meta.link("versions"), payload, nil)
}

// projectVersionResource resolves the version resource or fails if either
// the project or the version does not exist.
func (c *HTTPClient) projectVersionResource(ctx context.Context, projectName, versionName string) (*projectVersion, error) {
	p, err := c.findProject(ctx, projectName)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.NewHubError("find project", http.StatusNotFound,
			fmt.Errorf("project %q not found", projectName))
	}
	v, err := c.findVersion(ctx, p, versionName)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.NewHubError("find version", http.StatusNotFound,
			fmt.Errorf("version %q not found", versionName))
	}
	return v, nil
}

// UnmapCodeLocations clears every code location mapped to the project
// version, re-listing until none remain.
func (c *HTTPClient) UnmapCodeLocations(ctx context.Context, projectName, versionName string) (int, error) {
	v, err := c.projectVersionResource(ctx, projectName, versionName)
	if err != nil {
		return 0, err
	}
	href := v.Meta.link("codelocations")
	if href == "" {
		return 0, errors.NewHubError("list code locations", 0,
			errors.New("version has no codelocations link"))
	}

	unmapped := 0
	for pass := 0; pass < unmapPasses; pass++ {
		var page codeLocationPage
		if err := c.do(ctx, "list code locations", http.MethodGet, href, nil, &page); err != nil {
			return unmapped, err
		}
		if len(page.Items) == 0 {
			break
		}
		for _, loc := range page.Items {
			c.log.Debug("unmapping code location", "name", loc.Name)
			loc.MappedProjectVersion = ""
			if err := c.do(ctx, "unmap code location", http.MethodPut,
				loc.Meta.Href, loc, nil); err != nil {
				return unmapped, err
			}
			unmapped++
		}
	}
	return unmapped, nil
}

// findCodeLocation returns the code location with the exact name, or nil.
func (c *HTTPClient) findCodeLocation(ctx context.Context, name string) (*codeLocation, error) {
	query := url.Values{"q": {"name:" + name}, "limit": {"100"}}
	var page codeLocationPage
	if err := c.do(ctx, "find code location", http.MethodGet,
		c.baseURL+"/api/codelocations?"+query.Encode(), nil, &page); err != nil {
		return nil, err
	}
	for i := range page.Items {
		if page.Items[i].Name == name {
			return &page.Items[i], nil
		}
	}
	return nil, nil
}

// WaitForScans polls each code location's scan summaries until a scan
// updated after since completes, fails, or the poll budget runs out.
func (c *HTTPClient) WaitForScans(ctx context.Context, codeLocations []string, since time.Time) error {
	for _, name := range codeLocations {
		if err := c.waitForScan(ctx, name, since); err != nil {
			return err
		}
	}
	return nil
}

func (c *HTTPClient) waitForScan(ctx context.Context, name string, since time.Time) error {
	log := c.log.WithCodeLocation(name)

	for check := 0; check < c.maxChecks; check++ {
		status, err := c.scanStatus(ctx, name, since)
		if err != nil {
			return err
		}

		switch status {
		case "COMPLETE":
			log.Debug("scan processing complete", "checks", check+1)
			return nil
		case "FAILURE", "ERROR", "CANCELLED":
			return errors.NewHubError("wait for scan", 0,
				fmt.Errorf("scan %s finished with status %s", name, status))
		}

		log.Debug("scan still processing", "status", status, "check", check+1)
		select {
		case <-ctx.Done():
			return errors.NewHubError("wait for scan", 0, ctx.Err())
		case <-time.After(c.checkDelay):
		}
	}
	return errors.NewHubError("wait for scan", 0, errors.ErrScanTimeout)
}

// scanStatus returns the status of the most recent scan for the code
// location updated after since, or "" if no such scan exists yet.
func (c *HTTPClient) scanStatus(ctx context.Context, name string, since time.Time) (string, error) {
	loc, err := c.findCodeLocation(ctx, name)
	if err != nil {
		return "", err
	}
	if loc == nil {
		return "", nil
	}
	href := loc.Meta.link("scans")
	if href == "" {
		return "", nil
	}

	var page scanSummaryPage
	if err := c.do(ctx, "list scan summaries", http.MethodGet, href, nil, &page); err != nil {
		return "", err
	}

	var latest *scanSummary
	for i := range page.Items {
		s := &page.Items[i]
		if s.UpdatedAt.Before(since) {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return "", nil
	}
	return latest.Status, nil
}
