package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httperrors "github.com/porcelaincode/mocha-admin-sub000/internal/transport/http/errors"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Fail(w, http.StatusBadRequest, code, message)
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Fail(w, http.StatusNotFound, code, message)
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Fail(w, http.StatusInternalServerError, code, message)
}

func uuidURLParam(r *http.Request, key string) (uuid.UUID, bool) {
	if r == nil {
		return uuid.Nil, false
	}
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUIDQuery(r *http.Request, key string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}
