package keywords

import "strings"

// Term records which surface form matched a keyword.
type Term struct {
	Keyword string // as supplied by the caller
	Form    string // lower-cased form found in the text
}

// ViaSynonym reports whether the match went through a form other than the keyword itself.
func (t Term) ViaSynonym() bool {
	return normalize(t.Keyword) != t.Form
}

// String renders "keyword" or "keyword (via form)".
func (t Term) String() string {
	if t.ViaSynonym() {
		return t.Keyword + " (via " + t.Form + ")"
	}
	return t.Keyword
}

// MatchResult is the outcome of matching one text against a keyword list.
type MatchResult struct {
	Matched map[string]struct{} // lower-cased keywords that matched
	Count   int
	Terms   []Term // in keyword order
	Total   int
}

// Match checks each keyword, in order, against text. A keyword's forms are the
// keyword itself followed by its declared synonyms; the first contained form wins.
func (v *Vocabulary) Match(text string, keywords []string) MatchResult {
	lower := strings.ToLower(text)
	res := MatchResult{
		Matched: make(map[string]struct{}),
		Total:   len(keywords),
	}

	for _, kw := range keywords {
		key := normalize(kw)
		if key == "" {
			continue
		}
		for _, form := range v.forms(key) {
			if strings.Contains(lower, form) {
				res.Matched[key] = struct{}{}
				res.Terms = append(res.Terms, Term{Keyword: kw, Form: form})
				break
			}
		}
	}

	res.Count = len(res.Matched)
	return res
}

// ShouldExclude reports whether text contains any exclusion term, returning every term found.
func (v *Vocabulary) ShouldExclude(text string) (bool, []string) {
	lower := strings.ToLower(text)
	var hits []string
	for _, term := range v.exclusions {
		if strings.Contains(lower, term) {
			hits = append(hits, term)
		}
	}
	return len(hits) > 0, hits
}

func (v *Vocabulary) forms(key string) []string {
	syn := v.synonyms[key]
	forms := make([]string, 0, len(syn)+1)
	forms = append(forms, key)
	for _, f := range syn {
		if f != key {
			forms = append(forms, f)
		}
	}
	return forms
}
