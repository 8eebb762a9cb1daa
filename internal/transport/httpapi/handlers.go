package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"paper_recommender/internal/domain"
)

const (
	refreshDaysBack = 30
	refreshMinScore = 0.2
	defaultTopTerms = 10
)

func (s *Server) listJournals(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	journals, err := s.svc.ListJournals(r.Context(), activeOnly)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]journalResponse, 0, len(journals))
	for _, j := range journals {
		out = append(out, toJournalResponse(j))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"journals": out, "count": len(out)})
}

func (s *Server) addJournal(w http.ResponseWriter, r *http.Request) {
	var req addJournalRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	journal, err := s.svc.AddJournal(r.Context(), domain.NewJournal{
		Name:       req.Name,
		ExternalID: req.ISSN,
		Keywords:   req.Keywords,
		Frequency:  req.Frequency,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"journal": toJournalResponse(*journal)})
}

func (s *Server) updateJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req updateJournalRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.IsActive == nil && req.Keywords == nil {
		s.fail(w, r, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}

	if req.IsActive != nil {
		if err := s.svc.ToggleJournal(r.Context(), id, *req.IsActive); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Keywords != nil {
		if err := s.svc.UpdateJournalKeywords(r.Context(), id, req.Keywords); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"journal_id": id})
}

func (s *Server) removeJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.svc.RemoveJournal(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"journal_id": id})
}

func (s *Server) listKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.svc.Keywords(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"keywords": keywords, "count": len(keywords)})
}

func (s *Server) keywordVariations(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "keyword")
	writeSuccess(w, http.StatusOK, map[string]any{
		"keyword":    keyword,
		"variations": s.svc.Variations(keyword),
	})
}

func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	journalID, err := queryInt(r, "journal_id", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))

	page, err := s.svc.ListPapers(r.Context(), domain.PaperFilter{
		JournalID: int64(journalID),
		Keyword:   keyword,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"papers": toPaperResponses(page.Papers),
		"pagination": paginationResponse{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore(),
		},
		"filters": map[string]any{
			"journal_id": journalID,
			"keyword":    keyword,
		},
	})
}

func (s *Server) listRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RecommendationFilter{}

	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		filter.Status = status
	}
	if raw := q.Get("category"); raw != "" {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		filter.Category = category
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filter.Limit = limit

	recs, err := s.svc.GetRecommendations(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"recommendations": toPaperResponses(recs),
		"count":           len(recs),
	})
}

func (s *Server) updatePaperStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := s.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"id":     rec.ID,
		"status": string(rec.Status),
		"paper":  toPaperResponse(*rec),
	})
}

func (s *Server) deletePaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.svc.DeleteRecommendation(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id})
}

func (s *Server) explainPaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	k, err := queryInt(r, "k", defaultTopTerms)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	exp, err := s.svc.Explain(r.Context(), id, k)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"explanation": toExplanationResponse(exp)})
}

func (s *Server) lookupArticle(w http.ResponseWriter, r *http.Request) {
	doi := strings.TrimSpace(r.URL.Query().Get("doi"))
	if doi == "" {
		s.fail(w, r, fmt.Errorf("%w: doi is required", errBadRequest))
		return
	}

	c, ok := s.svc.LookupArticle(r.Context(), doi)
	if !ok {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	authors := c.Authors
	if authors == nil {
		authors = []string{}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"article": candidateResponse{
		Title:    c.Title,
		Abstract: c.Abstract,
		Authors:  authors,
		Year:     c.Year,
		DOI:      c.ExternalID,
		Journal:  c.Journal,
	}})
}

// refresh runs the pipeline synchronously. Without a body it looks back
// 30 days with a 0.2 score floor.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	daysBack := refreshDaysBack
	if req.DaysBack != nil {
		daysBack = *req.DaysBack
	}
	minScore := refreshMinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	if req.RebuildProfile {
		s.svc.Refresh()
	}

	// a dropped client does not abort a run that is already storing results
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.refreshTimeout)
	defer cancel()

	stats, err := s.svc.FetchAndRecommend(ctx, domain.JournalSelector{JournalID: req.JournalID}, daysBack, minScore)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"stats": toRunStatsResponse(stats)})
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	deleted, err := s.svc.ClearOld(r.Context(), req.Days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Statistics(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"stats": toStatsResponse(st)})
}

func (s *Server) profileStatus(w http.ResponseWriter, r *http.Request) {
	st := s.svc.ProfileStatus()
	writeSuccess(w, http.StatusOK, map[string]any{"profile": map[string]any{
		"loaded":          st.Loaded,
		"ready":           st.Ready,
		"documents":       st.Documents,
		"vocabulary_size": st.VocabularySize,
	}})
}
