package nvd

// Wire types for the NVD CVE API 2.0 response, limited to the fields the
// normalization uses.

type apiResponse struct {
	ResultsPerPage  int             `json:"resultsPerPage"`
	StartIndex      int             `json:"startIndex"`
	TotalResults    int             `json:"totalResults"`
	Vulnerabilities []vulnerability `json:"vulnerabilities"`
}

type vulnerability struct {
	Cve cveItem `json:"cve"`
}

type cveItem struct {
	ID           string        `json:"id"`
	Published    string        `json:"published"`
	LastModified string        `json:"lastModified"`
	Descriptions []description `json:"descriptions"`
	Metrics      metrics       `json:"metrics"`
	References   []reference   `json:"references"`
}

type description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type metrics struct {
	CvssMetricV31 []metric `json:"cvssMetricV31"`
	CvssMetricV30 []metric `json:"cvssMetricV30"`
	CvssMetricV2  []metric `json:"cvssMetricV2"`
}

type metric struct {
	CvssData cvssData `json:"cvssData"`
}

type cvssData struct {
	BaseScore float64 `json:"baseScore"`
}

type reference struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}
