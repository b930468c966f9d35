package nvd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnquery/types"
)

const queryResponse = `{
  "resultsPerPage": 2,
  "startIndex": 0,
  "totalResults": 2,
  "vulnerabilities": [
    {
      "cve": {
        "id": "CVE-2021-44228",
        "published": "2021-12-10T10:15:09.143",
        "lastModified": "2023-11-07T04:21:28.010",
        "descriptions": [
          {"lang": "en", "value": "Apache Log4j2 JNDI features do not protect against attacker controlled LDAP."},
          {"lang": "es", "value": "Las características JNDI de Apache Log4j2 no protegen contra LDAP."}
        ],
        "metrics": {
          "cvssMetricV31": [{"cvssData": {"baseScore": 10.0}}],
          "cvssMetricV2": [{"cvssData": {"baseScore": 9.3}}]
        },
        "references": [
          {"url": "https://logging.apache.org/log4j/2.x/security.html", "tags": ["Vendor Advisory"]},
          {"url": "https://github.com/apache/logging-log4j2/pull/608", "tags": ["Patch"]},
          {"url": "https://example.com/writeup", "tags": ["Exploit"]}
        ]
      }
    },
    {
      "cve": {
        "id": "CVE-2021-45105",
        "published": "not a timestamp",
        "descriptions": [
          {"lang": "es", "value": "Sin descripción en inglés."}
        ],
        "metrics": {},
        "references": []
      }
    }
  ]
}`

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(serverURL), WithAPIKey("")}, opts...)
	c, err := NewClient(t.TempDir(), opts...)
	require.NoError(t, err)
	return c
}

func TestQuery(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query()
		assert.Equal(t, "cpe:2.3:*:*:log4j-core:2.14.1", q.Get("virtualMatchString"))
		assert.Equal(t, "100", q.Get("resultsPerPage"))
		_, _ = fmt.Fprint(w, queryResponse)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	records, err := c.Query("log4j-core", "2.14.1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	got := records[0]
	assert.Equal(t, "CVE-2021-44228", got.ID)
	assert.Equal(t, "Apache Log4j2 JNDI features do not protect against attacker controlled LDAP.", got.Description)
	assert.Equal(t, got.Description, got.Summary)
	assert.Equal(t, types.SeverityCritical, got.Severity)
	require.NotNil(t, got.CvssScore)
	assert.Equal(t, 10.0, *got.CvssScore, "v3.1 metric takes precedence over v2")
	assert.Empty(t, got.AffectedVersions)
	require.NotNil(t, got.Published)
	assert.Equal(t, time.Date(2021, 12, 10, 10, 15, 9, 143000000, time.UTC), *got.Published)
	assert.Equal(t, []types.Reference{
		{URL: "https://logging.apache.org/log4j/2.x/security.html", Type: types.RefAdvisory},
		{URL: "https://github.com/apache/logging-log4j2/pull/608", Type: types.RefPatch},
		{URL: "https://example.com/writeup", Type: types.RefOther},
	}, got.References)
	assert.Equal(t, types.SourceNVD, got.Source)

	// No English description, no metrics.
	got = records[1]
	assert.Empty(t, got.Description)
	assert.Equal(t, types.SeverityUnknown, got.Severity)
	assert.Nil(t, got.CvssScore)
	assert.Nil(t, got.Published)

	// A repeated query is served from cache.
	_, err = c.Query("log4j-core", "2.14.1")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestQueryServerError(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "service unavailable", status: http.StatusServiceUnavailable, wantErr: "status 503"},
		{name: "forbidden", status: http.StatusForbidden, wantErr: "status 403"},
		{name: "malformed body", status: http.StatusOK, body: "{broken", wantErr: "failed to parse NVD response"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = fmt.Fprint(w, tc.body)
			}))
			defer ts.Close()

			c := newTestClient(t, ts.URL)
			_, err := c.Query("log4j-core", "2.14.1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestQueryAPIKeyHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("apiKey"))
		_, _ = fmt.Fprint(w, queryResponse)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, WithAPIKey("test-key"))
	_, err := c.Query("log4j-core", "2.14.1")
	require.NoError(t, err)
}

func TestGetByID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cveId") {
		case "CVE-2021-44228":
			_, _ = fmt.Fprint(w, queryResponse)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	t.Run("found", func(t *testing.T) {
		record, err := c.GetByID("CVE-2021-44228")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "CVE-2021-44228", record.ID)
	})

	t.Run("not found is not an error", func(t *testing.T) {
		record, err := c.GetByID("CVE-0000-0000")
		require.NoError(t, err)
		assert.Nil(t, record)
	})
}

func TestClearCache(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = fmt.Fprint(w, queryResponse)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Query("log4j-core", "2.14.1")
	require.NoError(t, err)
	require.NoError(t, c.ClearCache())

	_, err = c.Query("log4j-core", "2.14.1")
	require.NoError(t, err)
	assert.Equal(t, 2, requests, "cleared cache must force a refetch")
}
