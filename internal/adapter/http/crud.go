package http

import (
	"context"
	"net/http"
)

// ---------------------------------------------------------------------------
// Generic CRUD handler factories
//
// Each factory adapts one service method to an http.HandlerFunc. Routes
// with a single path parameter always name it "id".
// ---------------------------------------------------------------------------

// respond writes v with status on success and maps err onto an error
// response otherwise. notFound is the message used for a 404.
func respond(w http.ResponseWriter, status int, v any, err error, notFound string) {
	if err != nil {
		writeDomainError(w, err, notFound)
		return
	}
	writeJSON(w, status, v)
}

// nonNil turns a nil slice into an empty one so lists encode as [].
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// handleList serves a top-level collection.
func handleList[T any](listFn func(ctx context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := listFn(r.Context())
		respond(w, http.StatusOK, nonNil(items), err, "")
	}
}

// handleListByParent serves a collection nested under the resource named by "id".
func handleListByParent[T any](listFn func(ctx context.Context, parentID string) ([]T, error), notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := listFn(r.Context(), urlParam(r, "id"))
		respond(w, http.StatusOK, nonNil(items), err, notFound)
	}
}

// handleGet serves a single resource or a figure derived from it.
func handleGet[T any](getFn func(ctx context.Context, id string) (*T, error), notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := getFn(r.Context(), urlParam(r, "id"))
		respond(w, http.StatusOK, item, err, notFound)
	}
}

// handleGetValue serves a scalar computed for the resource named by "id",
// wrapped as {"id": ..., key: value}.
func handleGetValue[T any](key string, getFn func(ctx context.Context, id string) (T, error), notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := urlParam(r, "id")
		v, err := getFn(r.Context(), id)
		respond(w, http.StatusOK, map[string]any{"id": id, key: v}, err, notFound)
	}
}

// handleCreate decodes a request body and creates a resource. bind, when
// set, copies URL parameters into the request so a nested route decides
// the parent rather than the body.
func handleCreate[Req any, Res any](bodyLimit int64, bind func(r *http.Request, req *Req), createFn func(ctx context.Context, req *Req) (*Res, error), notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r, bodyLimit)
		if !ok {
			return
		}
		if bind != nil {
			bind(r, &req)
		}
		res, err := createFn(r.Context(), &req)
		respond(w, http.StatusCreated, res, err, notFound)
	}
}

// handleUpdate decodes a partial update and applies it to the resource named by "id".
func handleUpdate[Req any, Res any](bodyLimit int64, updateFn func(ctx context.Context, id string, req *Req) (*Res, error), notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r, bodyLimit)
		if !ok {
			return
		}
		res, err := updateFn(r.Context(), urlParam(r, "id"), &req)
		respond(w, http.StatusOK, res, err, notFound)
	}
}

// handleDelete deletes the resource named by "id" and answers 204.
func handleDelete(deleteFn func(ctx context.Context, id string) error, notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deleteFn(r.Context(), urlParam(r, "id")); err != nil {
			writeDomainError(w, err, notFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
