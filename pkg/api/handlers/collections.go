// Package handlers maps the HTTP surface onto the collection store: a
// greeting, list/create on a collection, and get/update/delete on a
// single resource. Status mapping follows the store's typed errors;
// everything else is a storage failure.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"copacabana/pkg/collection"
	"copacabana/pkg/keys"
	"copacabana/pkg/logger"
	"copacabana/pkg/models"
	"copacabana/pkg/utils"
)

const (
	codeNotFound     = "resource not found"
	codeInvalidShape = "resource-shape invalid"
	codeInvalidName  = "invalid name"
	codeInvalidID    = "invalid resource id"
	codeStorage      = "storage unavailable"
)

// API serves the collection CRUD routes.
type API struct {
	store *collection.Store
	// envelope wraps success bodies as {"success":{"data":...}}.
	envelope bool
}

// New returns the handler set backed by the given store.
func New(store *collection.Store, envelope bool) *API {
	return &API{store: store, envelope: envelope}
}

// Register attaches the greeting and the collection routes. Variable
// routes go last so fixed paths registered earlier keep precedence.
func Register(r *mux.Router, a *API) {
	r.HandleFunc("/", a.greeting).Methods(http.MethodGet)
	r.HandleFunc("/{namespace}/{collection}", a.list).Methods(http.MethodGet)
	r.HandleFunc("/{namespace}/{collection}", a.create).Methods(http.MethodPost)
	r.HandleFunc("/{namespace}/{collection}/{id:[0-9]+}", a.get).Methods(http.MethodGet)
	r.HandleFunc("/{namespace}/{collection}/{id:[0-9]+}", a.update).Methods(http.MethodPut)
	r.HandleFunc("/{namespace}/{collection}/{id:[0-9]+}", a.remove).Methods(http.MethodDelete)
}

func (a *API) greeting(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Hello Copacabana !")
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ns, coll := pathParts(r)
	out, err := a.store.List(ns, coll)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, out)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	ns, coll := pathParts(r)
	res, perr := readResource(r)
	if perr != nil {
		utils.JSONError(w, http.StatusBadRequest, codeInvalidShape)
		return
	}
	created, err := a.store.Create(ns, coll, token(r), res)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusCreated, created)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	ns, coll := pathParts(r)
	id, err := keys.ParseID(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, codeInvalidID)
		return
	}
	res, err := a.store.Get(ns, coll, id)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, res)
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	ns, coll := pathParts(r)
	id, err := keys.ParseID(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, codeInvalidID)
		return
	}
	res, perr := readResource(r)
	if perr != nil {
		utils.JSONError(w, http.StatusBadRequest, codeInvalidShape)
		return
	}
	updated, err := a.store.Update(ns, coll, id, token(r), res)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, updated)
}

func (a *API) remove(w http.ResponseWriter, r *http.Request) {
	ns, coll := pathParts(r)
	id, err := keys.ParseID(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, codeInvalidID)
		return
	}
	if err := a.store.Delete(ns, coll, id, token(r)); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ok writes a success body, honoring the configured envelope.
func (a *API) ok(w http.ResponseWriter, status int, v any) {
	if a.envelope {
		v = utils.Envelope(v)
	}
	_ = utils.JSONWrite(w, status, v)
}

// fail maps store errors onto status codes. Unknown errors are storage
// failures: logged with detail, surfaced without it.
func (a *API) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collection.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, codeNotFound)
	case errors.Is(err, collection.ErrInvalidResource):
		utils.JSONError(w, http.StatusBadRequest, codeInvalidShape)
	case errors.Is(err, collection.ErrInvalidName):
		utils.JSONError(w, http.StatusBadRequest, codeInvalidName)
	default:
		logger.Error("storage_failure", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, codeStorage)
	}
}

func pathParts(r *http.Request) (string, string) {
	v := mux.Vars(r)
	return v["namespace"], v["collection"]
}

// token returns the opaque pass-through token echoed into change events.
// Not validated; not an authentication mechanism.
func token(r *http.Request) string {
	return r.URL.Query().Get("token")
}

// readResource decodes the request body into a non-empty JSON object.
func readResource(r *http.Request) (models.Resource, error) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	res, err := models.ParseResource(b)
	if err != nil {
		return nil, err
	}
	if !res.Valid() {
		return nil, models.ErrNotObject
	}
	return res, nil
}
