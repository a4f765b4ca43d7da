package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/maxsupermanhd/TileChunk/render/dispatchers"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

func apiHandle(f func(http.ResponseWriter, *http.Request) (int, string)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		code, content := f(w, r)
		w.Header().Set("Server", "TileChunk webserver "+CommitHash)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(code)
		w.Write([]byte(content))
	}
}

func marshalOrFail(code int, content interface{}) (int, string) {
	resp, err := json.Marshal(content)
	if err != nil {
		return 500, "JSON serialization failed: " + err.Error()
	}
	return code, string(resp) + "\n"
}

func setContentTypeJson(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

// errorCode maps core errors to http status codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, tilemap.ErrUnknownLayer):
		return 404
	case errors.Is(err, tilemap.ErrOutOfBounds),
		errors.Is(err, tilemap.ErrInvalidTextureIndex),
		errors.Is(err, tilemap.ErrInvalidSettings):
		return 400
	case errors.Is(err, tilemap.ErrDuplicateLayer),
		errors.Is(err, tilemap.ErrLayerSettingsImmutable):
		return 409
	case errors.Is(err, dispatchers.ErrMesherClosed):
		return 503
	}
	return 500
}

func varInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[name])
}

func varLayer(r *http.Request) (*tilemap.Layer, int, string) {
	id, err := strconv.ParseUint(mux.Vars(r)["layer"], 10, 16)
	if err != nil {
		return nil, 400, "Bad layer id: " + err.Error()
	}
	l, err := eng.Map().Layer(uint16(id))
	if err != nil {
		return nil, errorCode(err), err.Error()
	}
	return l, 200, ""
}
