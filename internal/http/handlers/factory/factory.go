// Package factory provides parametrized CRUD handlers reusable across any
// resource type that offers the Store capability set. Handlers hold no state
// between calls; every invocation is independent.
package factory

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trailborn/tours-api/internal/http/request"
	"github.com/trailborn/tours-api/internal/http/response"
)

// Store is the capability set a resource type must expose: T is the entity,
// P its partial-update patch. FindByID and UpdateByID return (nil, nil) when
// the identifier has no live record.
type Store[T any, P any] interface {
	Create(ctx context.Context, doc *T) (*T, error)
	FindByID(ctx context.Context, id int64) (*T, error)
	Find(ctx context.Context, opts request.ListOptions) ([]T, error)
	UpdateByID(ctx context.Context, id int64, patch *P) (*T, error)
	DeleteByID(ctx context.Context, id int64) error
}

type validator interface{ Validate() error }
type normalizer interface{ Normalize() }

// Prep mutates a decoded body before validation, e.g. injecting route or
// session values into the document.
type Prep[T any] func(r *http.Request, doc *T) error

// CreateOne validates and persists a new document from the request body.
func CreateOne[T any, P any](s Store[T, P], preps ...Prep[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc T
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			response.BadRequest(w, "invalid JSON body")
			return
		}

		for _, prep := range preps {
			if err := prep(r, &doc); err != nil {
				response.Error(w, err)
				return
			}
		}

		if n, ok := any(&doc).(normalizer); ok {
			n.Normalize()
		}
		if v, ok := any(&doc).(validator); ok {
			if err := v.Validate(); err != nil {
				response.Error(w, err)
				return
			}
		}

		created, err := s.Create(r.Context(), &doc)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.JSON(w, http.StatusCreated, created)
	}
}

// GetOne fetches a document by the {id} route parameter.
func GetOne[T any, P any](s Store[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		doc, err := s.FindByID(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		if doc == nil {
			response.NotFound(w, "no resource found with that ID")
			return
		}

		response.JSON(w, http.StatusOK, doc)
	}
}

// GetAll lists documents applying, in order: filtering, sorting, field
// projection and pagination from the query string.
func GetAll[T any, P any](s Store[T, P], preps ...ListPrep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := request.ParseListOptions(r.URL.Query())
		for _, prep := range preps {
			prep(r, &opts)
		}

		docs, err := s.Find(r.Context(), opts)
		if err != nil {
			response.Error(w, err)
			return
		}

		response.List(w, http.StatusOK, len(docs), project(docs, opts.Fields))
	}
}

// ListPrep adjusts parsed listing options before the query runs, e.g.
// scoping to a route parameter or forcing an alias preset.
type ListPrep func(r *http.Request, opts *request.ListOptions)

// UpdateOne applies a partial update by identifier with validation re-run.
func UpdateOne[T any, P any](s Store[T, P], preps ...Prep[P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		var patch P
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			response.BadRequest(w, "invalid JSON body")
			return
		}

		for _, prep := range preps {
			if err := prep(r, &patch); err != nil {
				response.Error(w, err)
				return
			}
		}

		if n, ok := any(&patch).(normalizer); ok {
			n.Normalize()
		}
		if v, ok := any(&patch).(validator); ok {
			if err := v.Validate(); err != nil {
				response.Error(w, err)
				return
			}
		}

		updated, err := s.UpdateByID(r.Context(), id, &patch)
		if err != nil {
			response.Error(w, err)
			return
		}
		if updated == nil {
			response.NotFound(w, "no resource found with that ID")
			return
		}

		response.JSON(w, http.StatusOK, updated)
	}
}

// DeleteOne hard-deletes by identifier and returns 204 with no body.
func DeleteOne[T any, P any](s Store[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		if err := s.DeleteByID(r.Context(), id); err != nil {
			response.Error(w, err)
			return
		}

		response.NoContent(w)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid resource ID")
		return 0, false
	}
	return id, true
}

// project reduces each serialized document to the requested inclusion list.
// The id field always survives projection.
func project(docs any, fields []string) any {
	if len(fields) == 0 {
		return docs
	}

	raw, err := json.Marshal(docs)
	if err != nil {
		return docs
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return docs
	}

	keep := map[string]bool{"id": true}
	for _, f := range fields {
		keep[f] = true
	}

	for i, item := range items {
		filtered := make(map[string]any, len(fields)+1)
		for k, v := range item {
			if keep[k] {
				filtered[k] = v
			}
		}
		items[i] = filtered
	}

	return items
}
