// Package nvd queries the NVD CVE API 2.0 by building a CPE virtual match
// expression for a package/version pair and normalizing the scored entries
// into canonical records.
package nvd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"vulnquery/cache"
	"vulnquery/db"
	"vulnquery/ratelimit"
	"vulnquery/types"
	"vulnquery/utils"
)

const (
	apiURL         = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	cachePrefix    = "nvd"
	cacheTTLHours  = 24
	resultsPerPage = 100
	requestTimeout = 60 * time.Second

	// NVD allows 50 requests per rolling 30 seconds with an API key and far
	// fewer without one.
	rateWindow     = 30 * time.Second
	keyedRateLimit = 50
	anonRateLimit  = 5
)

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithTTLHours(hours int) Option {
	return func(c *Client) { c.ttlHours = hours }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func WithFs(fs afero.Fs) Option {
	return func(c *Client) { c.fs = fs }
}

type Client struct {
	baseURL  string
	apiKey   string
	ttlHours int
	timeout  time.Duration
	fs       afero.Fs

	cache   cache.Cache
	limiter *ratelimit.Limiter
}

var _ db.Database = (*Client)(nil)

// NewClient builds an NVD client caching under cacheDir. The API key is read
// from NVD_API_KEY unless overridden.
func NewClient(cacheDir string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:  apiURL,
		apiKey:   os.Getenv("NVD_API_KEY"),
		ttlHours: cacheTTLHours,
		timeout:  requestTimeout,
		fs:       afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.cache, err = cache.New(c.fs, cacheDir, cachePrefix); err != nil {
		return nil, xerrors.Errorf("failed to initialize NVD cache: %w", err)
	}

	limit := anonRateLimit
	if c.apiKey != "" {
		limit = keyedRateLimit
	}
	c.limiter = ratelimit.New(limit, rateWindow)

	return c, nil
}

// Query returns the vulnerabilities NVD reports for the package at version.
// A single page of up to 100 results is fetched; a larger result set is
// truncated.
func (c *Client) Query(pkg, version string) ([]types.CveRecord, error) {
	key := fmt.Sprintf("%s:%s", pkg, version)
	if records, ok := c.cache.Read(key, c.ttlHours); ok {
		log.WithFields(log.Fields{"source": types.SourceNVD, "package": pkg, "version": version}).
			Debug("cache hit")
		return records, nil
	}

	q := url.Values{}
	q.Set("virtualMatchString", fmt.Sprintf("cpe:2.3:*:*:%s:%s", pkg, version))
	q.Set("resultsPerPage", strconv.Itoa(resultsPerPage))

	body, status, err := c.fetch(q)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, xerrors.Errorf("NVD API returned status %d", status)
	}

	resp, err := parseResponse(body)
	if err != nil {
		return nil, err
	}

	records := make([]types.CveRecord, 0, len(resp.Vulnerabilities))
	for _, v := range resp.Vulnerabilities {
		records = append(records, parseCVE(v.Cve))
	}

	if err := c.cache.Write(key, records); err != nil {
		log.WithError(err).WithField("source", types.SourceNVD).Warn("failed to write cache")
	}
	return records, nil
}

// GetByID looks up a single CVE identifier. An unknown identifier yields
// (nil, nil).
func (c *Client) GetByID(id string) (*types.CveRecord, error) {
	q := url.Values{}
	q.Set("cveId", id)

	body, status, err := c.fetch(q)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case status != http.StatusOK:
		return nil, xerrors.Errorf("NVD API returned status %d", status)
	}

	resp, err := parseResponse(body)
	if err != nil {
		return nil, err
	}
	if len(resp.Vulnerabilities) == 0 {
		return nil, nil
	}

	record := parseCVE(resp.Vulnerabilities[0].Cve)
	return &record, nil
}

func (c *Client) ClearCache() error {
	return c.cache.Clear()
}

// fetch issues one rate-limited API request. No retry: a transport failure
// fails the call and a non-success status is the caller's to judge.
func (c *Client) fetch(q url.Values) ([]byte, int, error) {
	c.limiter.Wait()

	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"apiKey": c.apiKey}
	}

	body, status, err := utils.Get(c.baseURL+"?"+q.Encode(), headers, c.timeout)
	if err != nil {
		return nil, 0, xerrors.Errorf("failed to fetch NVD API: %w", err)
	}
	return body, status, nil
}

func parseResponse(body []byte) (apiResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return apiResponse{}, xerrors.Errorf("failed to parse NVD response: %w", err)
	}
	return resp, nil
}

// parseCVE normalizes one NVD entry. Affected-version extraction would need
// configuration-node CPE match parsing, which is not implemented, so the
// range list is always empty.
func parseCVE(cve cveItem) types.CveRecord {
	var desc string
	for _, d := range cve.Descriptions {
		if d.Lang == "en" {
			desc = d.Value
			break
		}
	}

	severity := types.SeverityUnknown
	var score *float64
	if s, ok := baseScore(cve.Metrics); ok {
		severity = types.FromScore(s)
		score = &s
	}

	var refs []types.Reference
	for _, r := range cve.References {
		refs = append(refs, types.Reference{URL: r.URL, Type: refType(r.Tags)})
	}

	return types.CveRecord{
		ID:          cve.ID,
		Summary:     types.Summarize(desc),
		Description: desc,
		Severity:    severity,
		CvssScore:   score,
		Published:   utils.ParseTime(cve.Published),
		Modified:    utils.ParseTime(cve.LastModified),
		References:  refs,
		Source:      types.SourceNVD,
	}
}

// baseScore returns the first available base score, preferring CVSS v3.1
// over v3.0 over v2.
func baseScore(m metrics) (float64, bool) {
	for _, candidates := range [][]metric{m.CvssMetricV31, m.CvssMetricV30, m.CvssMetricV2} {
		if len(candidates) > 0 {
			return candidates[0].CvssData.BaseScore, true
		}
	}
	return 0, false
}

func refType(tags []string) types.RefType {
	for _, tag := range tags {
		switch strings.ToUpper(tag) {
		case "PATCH":
			return types.RefPatch
		case "VENDOR ADVISORY", "THIRD PARTY ADVISORY":
			return types.RefAdvisory
		case "VENDOR":
			return types.RefVendor
		}
	}
	return types.RefOther
}
