// Package osv queries the OSV API. One lookup sweeps several candidate
// ecosystem namespaces, normalizes every advisory returned, and deduplicates
// by identifier before returning.
package osv

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"vulnquery/cache"
	"vulnquery/db"
	"vulnquery/types"
	"vulnquery/utils"
)

const (
	apiURL         = "https://api.osv.dev/v1"
	cachePrefix    = "osv"
	cacheTTLHours  = 12
	requestTimeout = 30 * time.Second
)

// ecosystems are the candidate namespaces swept on every package query, in
// query order. Order matters: the first occurrence of a duplicated
// identifier wins.
var ecosystems = []string{"Linux", "Debian", "Alpine", "OSS-Fuzz"}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
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

func WithEcosystems(ecosystems []string) Option {
	return func(c *Client) { c.ecosystems = ecosystems }
}

type Client struct {
	baseURL    string
	ttlHours   int
	timeout    time.Duration
	fs         afero.Fs
	ecosystems []string

	cache cache.Cache
}

var _ db.Database = (*Client)(nil)

// NewClient builds an OSV client caching under cacheDir. OSV applies no
// client-side rate limiting.
func NewClient(cacheDir string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    apiURL,
		ttlHours:   cacheTTLHours,
		timeout:    requestTimeout,
		fs:         afero.NewOsFs(),
		ecosystems: ecosystems,
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.cache, err = cache.New(c.fs, cacheDir, cachePrefix); err != nil {
		return nil, xerrors.Errorf("failed to initialize OSV cache: %w", err)
	}
	return c, nil
}

// Query sweeps every candidate ecosystem namespace for the package at
// version. A namespace answering with a non-success status is skipped; a
// transport failure aborts the whole query. The combined result is
// deduplicated by identifier, first seen wins.
func (c *Client) Query(pkg, version string) ([]types.CveRecord, error) {
	key := fmt.Sprintf("%s:%s", pkg, version)
	if records, ok := c.cache.Read(key, c.ttlHours); ok {
		log.WithFields(log.Fields{"source": types.SourceOSV, "package": pkg, "version": version}).
			Debug("cache hit")
		return records, nil
	}

	var combined []osvVuln
	for _, eco := range c.ecosystems {
		req := queryRequest{
			Package: packageInfo{Name: pkg, Ecosystem: eco},
			Version: version,
		}
		body, status, err := utils.PostJSON(c.baseURL+"/query", req, c.timeout)
		if err != nil {
			return nil, xerrors.Errorf("failed to query OSV: %w", err)
		}
		if status != http.StatusOK {
			log.WithFields(log.Fields{"source": types.SourceOSV, "ecosystem": eco, "status": status}).
				Warn("skipping ecosystem")
			continue
		}

		var resp queryResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, xerrors.Errorf("failed to parse OSV response for %s: %w", eco, err)
		}
		combined = append(combined, resp.Vulns...)
	}

	records := lo.Map(combined, func(v osvVuln, _ int) types.CveRecord {
		return parseVuln(v)
	})
	records = lo.UniqBy(records, func(r types.CveRecord) string {
		return r.ID
	})

	if err := c.cache.Write(key, records); err != nil {
		log.WithError(err).WithField("source", types.SourceOSV).Warn("failed to write cache")
	}
	return records, nil
}

// GetByID fetches a single advisory. An unknown identifier yields (nil, nil).
func (c *Client) GetByID(id string) (*types.CveRecord, error) {
	body, status, err := utils.Get(c.baseURL+"/vulns/"+id, nil, c.timeout)
	if err != nil {
		return nil, xerrors.Errorf("failed to fetch OSV advisory: %w", err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case status != http.StatusOK:
		return nil, xerrors.Errorf("OSV API returned status %d", status)
	}

	var vuln osvVuln
	if err := json.Unmarshal(body, &vuln); err != nil {
		return nil, xerrors.Errorf("failed to parse OSV advisory %s: %w", id, err)
	}

	record := parseVuln(vuln)
	return &record, nil
}

func (c *Client) ClearCache() error {
	return c.cache.Clear()
}

// parseVuln normalizes one OSV advisory.
func parseVuln(v osvVuln) types.CveRecord {
	severity := types.SeverityUnknown
	var score *float64
	if len(v.Severity) > 0 {
		raw := v.Severity[0].Score
		if s, err := strconv.ParseFloat(raw, 64); err == nil {
			severity = types.FromScore(s)
			score = &s
		} else {
			severity = types.FromLabel(raw)
		}
	}

	ranges, fixed := parseAffected(v.Affected)

	var refs []types.Reference
	for _, r := range v.References {
		refs = append(refs, types.Reference{URL: r.URL, Type: refType(r.Type)})
	}

	summary := v.Summary
	if summary == "" {
		summary = types.Summarize(v.Details)
	}

	return types.CveRecord{
		ID:               v.ID,
		Summary:          summary,
		Description:      v.Details,
		Severity:         severity,
		CvssScore:        score,
		AffectedVersions: ranges,
		FixedVersion:     fixed,
		Published:        utils.ParseTime(v.Published),
		Modified:         utils.ParseTime(v.Modified),
		References:       refs,
		Source:           types.SourceOSV,
	}
}

// parseAffected flattens every affected block into version ranges. Within a
// range the first introduced/fixed events win; a block's explicit version
// list is shared across all of its ranges. The returned fixed version is the
// first fixed event found anywhere.
func parseAffected(affected []osvAffected) ([]types.VersionRange, string) {
	var ranges []types.VersionRange
	var fixed string
	for _, a := range affected {
		for _, r := range a.Ranges {
			var vr types.VersionRange
			for _, e := range r.Events {
				if e.Introduced != "" && vr.Start == "" {
					vr.Start = e.Introduced
				}
				if e.Fixed != "" && vr.End == "" {
					vr.End = e.Fixed
				}
			}
			vr.Exact = a.Versions
			if fixed == "" && vr.End != "" {
				fixed = vr.End
			}
			ranges = append(ranges, vr)
		}
	}
	return ranges, fixed
}

func refType(osvType string) types.RefType {
	switch strings.ToUpper(osvType) {
	case "FIX":
		return types.RefPatch
	case "ADVISORY":
		return types.RefAdvisory
	case "PACKAGE":
		return types.RefVendor
	case "ARTICLE":
		return types.RefArticle
	default:
		return types.RefOther
	}
}
