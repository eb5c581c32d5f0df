package api

import (
	"encoding/json"
	"net/http"

	"github.com/pagelens/reader/internal/pipeline"
	"github.com/pagelens/reader/internal/reader"
)

type fetchRequest struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

type fetchResponse struct {
	Status          string          `json:"status"`
	Source          reader.Source   `json:"source"`
	CacheURL        string          `json:"cacheURL"`
	Article         *reader.Article `json:"article"`
	FromCache       bool            `json:"fromCache"`
	MayHaveEnhanced *bool           `json:"mayHaveEnhanced,omitempty"`
}

// fetchArticle serves both the explicit-source and the auto-selected fetch
// operations; the hint flag appears only on the auto path.
func (s *Server) fetchArticle(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, reader.NewValidationError("invalid JSON body"))
		return
	}
	if req.URL == "" {
		writeAppError(w, reader.NewValidationError("url is required"))
		return
	}

	var (
		result *pipeline.Result
		err    error
		auto   = req.Source == ""
	)
	if auto {
		result, err = s.svc.FetchAuto(r.Context(), req.URL)
	} else {
		var source reader.Source
		source, err = reader.ParseSource(req.Source)
		if err == nil {
			result, err = s.svc.FetchSource(r.Context(), req.URL, source)
		}
	}
	if err != nil {
		writeAppError(w, reader.AsAppError(err))
		return
	}

	resp := fetchResponse{
		Status:    "success",
		Source:    result.Source,
		CacheURL:  req.URL,
		Article:   result.Article,
		FromCache: result.FromCache,
	}
	if auto {
		resp.MayHaveEnhanced = &result.MayHaveEnhanced
	}
	writeJSON(w, http.StatusOK, resp)
}

type enhancementRequest struct {
	URL           string `json:"url"`
	CurrentLength int    `json:"currentLength"`
	CurrentSource string `json:"currentSource"`
}

type enhancementResponse struct {
	Enhanced bool            `json:"enhanced"`
	Source   reader.Source   `json:"source,omitempty"`
	Length   int             `json:"length,omitempty"`
	Article  *reader.Article `json:"article,omitempty"`
}

func (s *Server) checkEnhancement(w http.ResponseWriter, r *http.Request) {
	var req enhancementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, reader.NewValidationError("invalid JSON body"))
		return
	}
	source, err := reader.ParseSource(req.CurrentSource)
	if err != nil {
		writeAppError(w, reader.AsAppError(err))
		return
	}

	enh, err := s.svc.Enhance(r.Context(), req.URL, req.CurrentLength, source)
	if err != nil {
		writeAppError(w, reader.AsAppError(err))
		return
	}
	writeJSON(w, http.StatusOK, enhancementResponse{
		Enhanced: enh.Enhanced,
		Source:   enh.Source,
		Length:   enh.Length,
		Article:  enh.Article,
	})
}

func (s *Server) getClientArticle(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeAppError(w, reader.NewValidationError("url query parameter is required"))
		return
	}
	art, err := s.svc.LoadClient(r.Context(), rawURL)
	if err != nil {
		writeAppError(w, reader.AsAppError(err))
		return
	}
	if art == nil {
		notFound := reader.NewUnknownError("no client article cached for this URL")
		notFound.Status = http.StatusNotFound
		writeAppError(w, notFound)
		return
	}
	writeJSON(w, http.StatusOK, fetchResponse{
		Status:    "success",
		Source:    reader.SourceClient,
		CacheURL:  rawURL,
		Article:   art,
		FromCache: true,
	})
}

type clientArticleRequest struct {
	URL     string          `json:"url"`
	Article *reader.Article `json:"article"`
}

func (s *Server) putClientArticle(w http.ResponseWriter, r *http.Request) {
	var req clientArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, reader.NewValidationError("invalid JSON body"))
		return
	}
	if req.Article == nil {
		writeAppError(w, reader.NewValidationError("article is required"))
		return
	}
	stored, err := s.svc.SaveClient(r.Context(), req.URL, req.Article)
	if err != nil {
		writeAppError(w, reader.AsAppError(err))
		return
	}
	writeJSON(w, http.StatusOK, fetchResponse{
		Status:   "success",
		Source:   reader.SourceClient,
		CacheURL: req.URL,
		Article:  stored,
	})
}
