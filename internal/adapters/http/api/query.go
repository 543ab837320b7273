package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/expertgraph/internal/domain/types"
)

// departmentQuery mirrors the OpenAPI schema for POST /api/query.
type departmentQuery struct {
	Domain     string `json:"domain" validate:"required"`
	Department string `json:"department" validate:"required"`
}

// keywordSearch mirrors the OpenAPI schema for POST /api/keyword-search.
type keywordSearch struct {
	Keyword string `json:"keyword" validate:"required,max=256"`
	Page    int    `json:"page" validate:"omitempty,min=1,max=10000"`
	Limit   int    `json:"limit" validate:"omitempty,min=1,max=200"`
}

// similarQuery mirrors the query parameters of GET /api/similar.
type similarQuery struct {
	ID      string   `validate:"required"`
	Exclude []string `validate:"max=200"`
	Limit   int      `validate:"omitempty,min=1,max=200"`
}

type searchResponse struct {
	Articles []types.ArticleHit `json:"articles"`
}

// HandleDepartmentExperts handles POST /api/query requests.
func (s *Server) HandleDepartmentExperts(w http.ResponseWriter, r *http.Request) {
	const op = "api.department_experts"
	var req departmentQuery
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	res, err := s.deps.DepartmentExperts(r.Context(), req.Department, req.Domain)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleKeywordSearch handles POST /api/keyword-search requests.
func (s *Server) HandleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.keyword_search"
	var req keywordSearch
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	res, err := s.deps.Search(r.Context(), req.Keyword, req.Page, req.Limit)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	if res.Articles == nil {
		res.Articles = []types.ArticleHit{}
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSimilar handles GET /api/similar?id=a1&exclude=a2,a3&limit=5 requests.
// exclude may also be repeated.
func (s *Server) HandleSimilar(w http.ResponseWriter, r *http.Request) {
	const op = "api.similar"
	q := r.URL.Query()
	req := similarQuery{ID: strings.TrimSpace(q.Get("id"))}
	for _, v := range q["exclude"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.Exclude = append(req.Exclude, id)
			}
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, op, fmt.Errorf("%w: limit must be an integer", ErrBadRequest))
			return
		}
		req.Limit = n
	}
	if err := validate.Struct(req); err != nil {
		s.fail(w, r, op, fmt.Errorf("%w: %s", ErrBadRequest, validationMessage(err)))
		return
	}

	hits, err := s.deps.Similar(r.Context(), req.ID, req.Exclude, req.Limit)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	if hits == nil {
		hits = []types.ArticleHit{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Articles: hits})
}
