package types

import "time"

// Source tags identifying which backing database produced a record.
const (
	SourceNVD = "NVD"
	SourceOSV = "OSV"
)

// summaryLen is the maximum number of characters kept when deriving a
// summary from a long description.
const summaryLen = 200

// CveRecord is the canonical, source-agnostic vulnerability entry. Records
// are built by the source clients' normalization code and never mutated
// afterwards.
type CveRecord struct {
	ID               string         `json:"id"`
	Summary          string         `json:"summary"`
	Description      string         `json:"description"`
	Severity         Severity       `json:"severity"`
	CvssScore        *float64       `json:"cvss_score,omitempty"`
	AffectedVersions []VersionRange `json:"affected_versions,omitempty"`
	FixedVersion     string         `json:"fixed_version,omitempty"`
	Published        *time.Time     `json:"published,omitempty"`
	Modified         *time.Time     `json:"modified,omitempty"`
	References       []Reference    `json:"references,omitempty"`
	Source           string         `json:"source"`
}

// VersionRange describes affected versions. Start is inclusive, End is
// exclusive and Exact lists specific affected versions. All three may be set
// at once; they contribute independently rather than excluding each other.
type VersionRange struct {
	Start string   `json:"start,omitempty"`
	End   string   `json:"end,omitempty"`
	Exact []string `json:"exact,omitempty"`
}

type RefType string

const (
	RefPatch    RefType = "PATCH"
	RefAdvisory RefType = "ADVISORY"
	RefVendor   RefType = "VENDOR"
	RefArticle  RefType = "ARTICLE"
	RefOther    RefType = "OTHER"
)

type Reference struct {
	URL  string  `json:"url"`
	Type RefType `json:"ref_type"`
}

// Summarize derives a short summary from a long description by keeping the
// first 200 characters. Truncation counts characters, not bytes, so a
// multi-byte character is never split.
func Summarize(description string) string {
	runes := []rune(description)
	if len(runes) <= summaryLen {
		return description
	}
	return string(runes[:summaryLen])
}
