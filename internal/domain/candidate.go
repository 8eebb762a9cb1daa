package domain

// Candidate is an article returned by the bibliographic source. It is never
// stored on its own; only scored candidates become recommendations.
type Candidate struct {
	Title      string
	Abstract   string
	Authors    []string
	Year       *int
	ExternalID string // DOI
	Journal    string
}

// Text is the title and abstract joined for matching.
func (c Candidate) Text() string {
	if c.Abstract == "" {
		return c.Title
	}
	return c.Title + " " + c.Abstract
}

// FetchQuery parameterizes one fetch of recent articles.
type FetchQuery struct {
	JournalName string
	ExternalID  string
	DaysBack    int
	MaxResults  int
}

// CorpusDocument is one document of the researcher's library.
type CorpusDocument struct {
	Title       string
	Abstract    string
	Tags        []string
	Annotations []string
	Year        *int
	Authors     string
}
