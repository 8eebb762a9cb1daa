package crossref

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WorksResponse is the envelope of the /works search endpoint. Items are kept
// raw so one malformed item does not fail the whole batch.
type WorksResponse struct {
	Status  string `json:"status"`
	Message struct {
		TotalResults int               `json:"total-results"`
		Items        []json.RawMessage `json:"items"`
	} `json:"message"`
}

// WorkResponse is the envelope of a single /works/{doi} lookup.
type WorkResponse struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
}

// JournalResponse is the envelope of /journals/{issn}.
type JournalResponse struct {
	Status  string `json:"status"`
	Message struct {
		Title     string   `json:"title"`
		Publisher string   `json:"publisher"`
		ISSN      []string `json:"ISSN"`
	} `json:"message"`
}

// Work is one bibliographic item. Every field except the title is optional.
type Work struct {
	Title          TextList  `json:"title"`
	Abstract       string    `json:"abstract"`
	Author         []Author  `json:"author"`
	Published      *DateInfo `json:"published"`
	DOI            string    `json:"DOI"`
	ContainerTitle TextList  `json:"container-title"`
}

type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type DateInfo struct {
	DateParts [][]*int `json:"date-parts"`
}

// TextList accepts either a JSON string or an array of strings.
type TextList []string

func (t *TextList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TextList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("text list: %w", err)
	}
	*t = list
	return nil
}

// First returns the first element or "".
func (t TextList) First() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}
