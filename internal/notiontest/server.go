// Package notiontest provides an in-process fake of the subset of the Notion
// REST API that contextbridge uses: database queries, page creation and page
// property updates.
package notiontest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Request is one call received by the fake, kept for ordering assertions.
type Request struct {
	Method string
	Path   string
}

// Page is a stored page in Notion's wire shape.
type Page struct {
	ID         string
	DatabaseID string
	Created    time.Time
	Properties map[string]map[string]any
	Icon       map[string]any
	Cover      map[string]any
}

type database struct {
	createdTimeProp string
	pages           []*Page
}

type failure struct {
	method string
	prefix string
	status int
	msg    string
}

// Server is a fake Notion API backed by an httptest.Server.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	dbs      map[string]*database
	requests []Request
	failures []failure
	clock    time.Time
	pageSize int
}

// New starts a fake server and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		dbs:      make(map[string]*database),
		clock:    time.Date(2025, 8, 2, 14, 30, 0, 0, time.UTC),
		pageSize: 100,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/v1/databases/{id}/query", s.handleQuery)
	r.Post("/v1/pages", s.handleCreatePage)
	r.Patch("/v1/pages/{id}", s.handleUpdatePage)

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

// AddDatabase registers an empty database. When createdTimeProp is non-empty
// every page gets a created_time property under that name.
func (s *Server) AddDatabase(id, createdTimeProp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbs[id] = &database{createdTimeProp: createdTimeProp}
}

// SetPageSize caps the number of results per query response.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// FailOn makes every request matching method and path prefix fail with status.
func (s *Server) FailOn(method, pathPrefix string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: pathPrefix, status: status, msg: msg})
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Pages returns the pages stored in a database, in creation order.
func (s *Server) Pages(dbID string) []Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	db := s.dbs[dbID]
	if db == nil {
		return nil
	}
	out := make([]Page, 0, len(db.pages))
	for _, p := range db.pages {
		out = append(out, *p)
	}
	return out
}

// Client returns an HTTP client that routes api.notion.com traffic to the fake.
func (s *Server) Client() *http.Client {
	target, _ := url.Parse(s.srv.URL)
	return &http.Client{Transport: rewriteTransport{target: target, next: http.DefaultTransport}}
}

type rewriteTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	out.Host = rt.target.Host
	return rt.next.RoundTrip(out)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path})
		var fail *failure
		for i := range s.failures {
			f := s.failures[i]
			if f.method == r.Method && strings.HasPrefix(r.URL.Path, f.prefix) {
				fail = &f
				break
			}
		}
		s.mu.Unlock()

		if fail != nil {
			writeError(w, fail.status, fail.msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type queryBody struct {
	Filter      map[string]any `json:"filter"`
	Sorts       []sortOrder    `json:"sorts"`
	StartCursor string         `json:"start_cursor"`
	PageSize    int            `json:"page_size"`
}

type sortOrder struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.dbs[chi.URLParam(r, "id")]
	if db == nil {
		writeError(w, http.StatusNotFound, "Could not find database with ID: "+chi.URLParam(r, "id"))
		return
	}

	var matched []*Page
	for _, p := range db.pages {
		if len(body.Filter) == 0 || matchFilter(p, body.Filter) {
			matched = append(matched, p)
		}
	}
	for i := len(body.Sorts) - 1; i >= 0; i-- {
		order := body.Sorts[i]
		sort.SliceStable(matched, func(a, b int) bool {
			c := compareValues(sortValue(matched[a], order.Property), sortValue(matched[b], order.Property))
			if order.Direction == "descending" {
				return c > 0
			}
			return c < 0
		})
	}

	start := 0
	if body.StartCursor != "" {
		start, _ = strconv.Atoi(body.StartCursor)
	}
	size := s.pageSize
	if body.PageSize > 0 && body.PageSize < size {
		size = body.PageSize
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	results := make([]map[string]any, 0, end-start)
	for _, p := range matched[start:end] {
		results = append(results, pageJSON(p))
	}
	var next any
	if end < len(matched) {
		next = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object":      "list",
		"results":     results,
		"has_more":    end < len(matched),
		"next_cursor": next,
	})
}

type createBody struct {
	Parent struct {
		DatabaseID string `json:"database_id"`
	} `json:"parent"`
	Properties map[string]map[string]any `json:"properties"`
	Icon       map[string]any            `json:"icon"`
	Cover      map[string]any            `json:"cover"`
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.dbs[body.Parent.DatabaseID]
	if db == nil {
		writeError(w, http.StatusNotFound, "Could not find database with ID: "+body.Parent.DatabaseID)
		return
	}

	s.clock = s.clock.Add(time.Second)
	p := &Page{
		ID:         uuid.NewString(),
		DatabaseID: body.Parent.DatabaseID,
		Created:    s.clock,
		Properties: make(map[string]map[string]any),
		Icon:       body.Icon,
		Cover:      body.Cover,
	}
	for name, prop := range body.Properties {
		p.Properties[name] = normalize(prop)
	}
	if db.createdTimeProp != "" {
		p.Properties[db.createdTimeProp] = map[string]any{
			"type":         "created_time",
			"created_time": p.Created.Format(time.RFC3339),
		}
	}
	db.pages = append(db.pages, p)
	writeJSON(w, http.StatusOK, pageJSON(p))
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	for _, db := range s.dbs {
		for _, p := range db.pages {
			if p.ID != id {
				continue
			}
			for name, prop := range body.Properties {
				p.Properties[name] = normalize(prop)
			}
			writeJSON(w, http.StatusOK, pageJSON(p))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Could not find page with ID: "+id)
}

var propertyTypes = []string{
	"title", "rich_text", "number", "checkbox", "select", "multi_select",
	"status", "date", "relation", "url", "created_time",
}

// normalize adds the "type" key the client omits on writes and fills plain_text.
func normalize(prop map[string]any) map[string]any {
	out := make(map[string]any, len(prop)+1)
	for k, v := range prop {
		out[k] = v
	}
	for _, typ := range propertyTypes {
		if _, ok := prop[typ]; ok {
			out["type"] = typ
			break
		}
	}
	for _, key := range []string{"title", "rich_text"} {
		items, ok := out[key].([]any)
		if !ok {
			continue
		}
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := m["text"].(map[string]any); ok {
				m["plain_text"] = text["content"]
				m["type"] = "text"
			}
		}
	}
	return out
}

func pageJSON(p *Page) map[string]any {
	return map[string]any{
		"object":           "page",
		"id":               p.ID,
		"created_time":     p.Created.Format(time.RFC3339),
		"last_edited_time": p.Created.Format(time.RFC3339),
		"parent":           map[string]any{"type": "database_id", "database_id": p.DatabaseID},
		"archived":         false,
		"properties":       p.Properties,
		"url":              "https://www.notion.so/" + strings.ReplaceAll(p.ID, "-", ""),
	}
}

// PlainText returns the text value of a title or rich_text property.
func (p Page) PlainText(name string) string {
	prop := p.Properties[name]
	items, _ := prop[fmt.Sprint(prop["type"])].([]any)
	var b strings.Builder
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			b.WriteString(fmt.Sprint(m["plain_text"]))
		}
	}
	return b.String()
}

// Checkbox returns the value of a checkbox property.
func (p Page) Checkbox(name string) bool {
	v, _ := p.Properties[name]["checkbox"].(bool)
	return v
}

// Number returns the value of a number property.
func (p Page) Number(name string) float64 {
	v, _ := p.Properties[name]["number"].(float64)
	return v
}

// Has reports whether the page carries the property at all.
func (p Page) Has(name string) bool {
	_, ok := p.Properties[name]
	return ok
}

func matchFilter(p *Page, f map[string]any) bool {
	if and, ok := f["and"].([]any); ok {
		for _, sub := range and {
			m, _ := sub.(map[string]any)
			if !matchFilter(p, m) {
				return false
			}
		}
		return true
	}
	if or, ok := f["or"].([]any); ok {
		for _, sub := range or {
			m, _ := sub.(map[string]any)
			if matchFilter(p, m) {
				return true
			}
		}
		return false
	}

	name, _ := f["property"].(string)
	prop := p.Properties[name]
	for cond, raw := range f {
		if cond == "property" {
			continue
		}
		c, _ := raw.(map[string]any)
		if !matchCondition(cond, prop, c) {
			return false
		}
	}
	return true
}

func matchCondition(kind string, prop map[string]any, c map[string]any) bool {
	switch kind {
	case "title", "rich_text":
		text := textOf(prop)
		if v, ok := c["equals"].(string); ok && text != v {
			return false
		}
		if v, ok := c["does_not_equal"].(string); ok && text == v {
			return false
		}
		if v, ok := c["contains"].(string); ok && !strings.Contains(text, v) {
			return false
		}
		return true
	case "checkbox":
		val, _ := prop["checkbox"].(bool)
		if v, ok := c["equals"].(bool); ok && val != v {
			return false
		}
		if v, ok := c["does_not_equal"].(bool); ok && val == v {
			return false
		}
		return true
	case "relation":
		v, ok := c["contains"].(string)
		if !ok {
			return true
		}
		rels, _ := prop["relation"].([]any)
		for _, r := range rels {
			if m, ok := r.(map[string]any); ok && m["id"] == v {
				return true
			}
		}
		return false
	case "status", "select":
		opt, _ := prop[kind].(map[string]any)
		name, _ := opt["name"].(string)
		if v, ok := c["equals"].(string); ok && name != v {
			return false
		}
		if v, ok := c["does_not_equal"].(string); ok && name == v {
			return false
		}
		return true
	case "number":
		val, _ := prop["number"].(float64)
		if v, ok := c["equals"].(float64); ok && val != v {
			return false
		}
		return true
	}
	return true
}

func textOf(prop map[string]any) string {
	for _, key := range []string{"title", "rich_text"} {
		items, ok := prop[key].([]any)
		if !ok {
			continue
		}
		var b strings.Builder
		for _, it := range items {
			m, _ := it.(map[string]any)
			if s, ok := m["plain_text"].(string); ok {
				b.WriteString(s)
			}
		}
		return b.String()
	}
	return ""
}

func sortValue(p *Page, name string) any {
	prop := p.Properties[name]
	switch prop["type"] {
	case "number":
		v, _ := prop["number"].(float64)
		return v
	case "created_time":
		s, _ := prop["created_time"].(string)
		return s
	case "date":
		d, _ := prop["date"].(map[string]any)
		s, _ := d["start"].(string)
		return s
	case "title", "rich_text":
		return textOf(prop)
	}
	return nil
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	}
	if b == nil {
		return 0
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"object":  "error",
		"status":  status,
		"code":    "validation_error",
		"message": msg,
	})
}
