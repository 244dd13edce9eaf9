// Package api serves the latest environment readings over HTTP as plain
// text: GET /temp, /humidity and /press.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rubiojr/go-pienviro/enviro"
)

const DefaultAddr = ":5000"

// Source provides readings. Latest must not block on the sensor; Refresh
// performs a fresh read.
type Source interface {
	Latest(q enviro.Quantity) (enviro.Reading, error)
	Refresh(ctx context.Context, q enviro.Quantity) (enviro.Reading, error)
}

// FieldSource is an add-on sensor served at /<Name>.
type FieldSource interface {
	Name() string
	Fields() ([]enviro.Field, time.Time, error)
}

type handler struct {
	src Source
	log zerolog.Logger
}

// NewMux registers the reading endpoints, plus one endpoint per add-on
// sensor.
func NewMux(src Source, log zerolog.Logger, aux ...FieldSource) *http.ServeMux {
	h := &handler{src: src, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /temp", h.reading(enviro.Temperature))
	mux.HandleFunc("GET /humidity", h.reading(enviro.Humidity))
	mux.HandleFunc("GET /press", h.reading(enviro.Pressure))
	mux.HandleFunc("GET /healthz", h.healthz)
	for _, a := range aux {
		mux.HandleFunc("GET /"+a.Name(), h.fields(a))
	}
	return mux
}

func NewServer(addr string, mux *http.ServeMux, log zerolog.Logger) *http.Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &http.Server{
		Addr:              addr,
		Handler:           requestLogger(log, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// reading serves the latest value of q as a bare decimal. ?refresh=1 reads
// the sensor first and falls back to the stored value if that fails.
func (h *handler) reading(q enviro.Quantity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			rd  enviro.Reading
			err error
		)
		if refresh(r) {
			rd, err = h.src.Refresh(r.Context(), q)
			if err != nil {
				h.log.Warn().Err(err).Str("quantity", q.String()).Msg("refresh failed, serving stored value")
			}
		}
		if !refresh(r) || err != nil {
			rd, err = h.src.Latest(q)
		}
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, enviro.ErrNoReading) {
				status = http.StatusServiceUnavailable
			}
			h.log.Warn().Err(err).Str("quantity", q.String()).Msg("reading unavailable")
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Last-Modified", rd.UpdatedAt.UTC().Format(http.TimeFormat))
		writeText(w, http.StatusOK, enviro.FormatPlain(rd.Value))
	}
}

func refresh(r *http.Request) bool {
	switch r.URL.Query().Get("refresh") {
	case "1", "true", "yes":
		return true
	}
	return false
}

// fields serves an add-on sensor as space separated key=value pairs.
func (h *handler) fields(a FieldSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, at, err := a.Fields()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		pairs := make([]string, len(fields))
		for i, f := range fields {
			pairs[i] = f.Key + "=" + enviro.FormatPlain(f.Value)
		}
		w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
		writeText(w, http.StatusOK, strings.Join(pairs, " "))
	}
}

// healthz reports ok once every quantity has been read at least once.
func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	for _, q := range enviro.Quantities {
		if _, err := h.src.Latest(q); err != nil {
			writeText(w, http.StatusServiceUnavailable, "waiting for "+q.String())
			return
		}
	}
	writeText(w, http.StatusOK, "ok")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
