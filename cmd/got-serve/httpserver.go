// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bsdmp/got/modules/objstore"
	"github.com/bsdmp/got/modules/plumbing"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// maxInlineContent bounds how large an object's content may be for
// GET /objects/{oid}?content to inline it; without the content query
// parameter, or above this size, only metadata is reported. This is a
// read-only inspection endpoint, not a bulk object-transfer protocol.
const maxInlineContent = 1 << 20

// objectView is the JSON shape returned by GET /objects/{oid}.
type objectView struct {
	OID     string `json:"oid"`
	Kind    string `json:"kind"`
	Size    int64  `json:"size"`
	Content string `json:"content,omitempty"`
}

func newRouter(db *objstore.Database) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/objects/{oid}", getObjectHandler(db)).Methods(http.MethodGet)
	r.Use(requestLoggingMiddleware)
	return r
}

// getObjectHandler implements the opener's "Open/Extract/KindOf/SizeOf"
// contract (spec §6) as a single read-only HTTP boundary: it never reaches
// past objstore.Database into pack- or loose-specific internals.
func getObjectHandler(db *objstore.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := mux.Vars(r)["oid"]

		oid, err := db.Resolve(spec)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		obj, err := db.Open(oid)
		if err != nil {
			if plumbing.IsNoSuchObject(err) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		view := objectView{OID: oid.String(), Kind: obj.Kind.String(), Size: obj.Size()}
		if r.URL.Query().Has("content") && obj.Size() <= maxInlineContent {
			view.Content = string(obj.Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start),
		}).Info("got-serve: handled request")
	})
}
