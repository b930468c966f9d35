package utils

import (
	"os"
	"path/filepath"
	"time"

	"github.com/araddon/dateparse"
	"github.com/parnurzeal/gorequest"
	"golang.org/x/xerrors"
)

// CacheDir returns the default on-disk cache location.
func CacheDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "vulnquery")
}

func LookupEnv(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultValue
}

// Get performs a single GET request and returns the body and status code.
// Failed fetches are not retried; a transport failure is the caller's to
// propagate.
func Get(url string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {
	req := gorequest.New().Get(url).Timeout(timeout)
	for k, v := range headers {
		req.Header.Add(k, v)
	}
	resp, body, errs := req.Type("text").EndBytes()
	if len(errs) > 0 {
		return nil, 0, xerrors.Errorf("HTTP error. url: %s, err: %w", url, errs[0])
	}
	return body, resp.StatusCode, nil
}

// PostJSON performs a single POST request with a JSON-encoded payload and
// returns the body and status code. No retry, same as Get.
func PostJSON(url string, payload interface{}, timeout time.Duration) ([]byte, int, error) {
	resp, body, errs := gorequest.New().Post(url).Timeout(timeout).Send(payload).EndBytes()
	if len(errs) > 0 {
		return nil, 0, xerrors.Errorf("HTTP error. url: %s, err: %w", url, errs[0])
	}
	return body, resp.StatusCode, nil
}

// ParseTime parses a source-provided timestamp into UTC. Sources disagree on
// formats (NVD 2.0 omits the zone suffix), so parsing is lenient; anything
// unparseable or empty yields nil rather than a default.
func ParseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}
