// Package server exposes a controller and its voice engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/controller"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/synth"
	"github.com/jsphweid/chordsmith/voicing"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

// Synth is the part of synth.Engine the server edits. It is optional: a
// server driving a MIDI port has none.
type Synth interface {
	SetEnvelope(env synth.Envelope)
	Envelope() synth.Envelope
	RetargetLive()
	SetEffects(fx synth.Effects)
	Effects() synth.Effects
	Voices() []synth.VoiceInfo
}

type Server struct {
	ctrl    *controller.Controller
	synth   Synth
	origins []string
	router  *mux.Router
}

// ParamsRequest is a partial update of the controller's params. Symbol, when
// set, overrides Root and Quality ("Am7", "F#dim").
type ParamsRequest struct {
	controller.Params
	Symbol string `json:"symbol,omitempty"`
}

func New(ctrl *controller.Controller, s Synth, origins []string) *Server {
	srv := &Server{ctrl: ctrl, synth: s, origins: origins}
	if len(srv.origins) == 0 {
		srv.origins = []string{"*"}
	}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/chord", srv.handleGetChord).Methods(http.MethodGet)
	router.HandleFunc("/chord", srv.handlePress).Methods(http.MethodPost)
	router.HandleFunc("/trigger", srv.handleTrigger).Methods(http.MethodPost)
	router.HandleFunc("/release", srv.handleRelease).Methods(http.MethodPost)
	router.HandleFunc("/stop", srv.handleStop).Methods(http.MethodPost)
	router.HandleFunc("/params", srv.handleGetParams).Methods(http.MethodGet)
	router.HandleFunc("/params", srv.handlePutParams).Methods(http.MethodPut)
	router.HandleFunc("/envelope", srv.handleGetEnvelope).Methods(http.MethodGet)
	router.HandleFunc("/envelope", srv.handlePutEnvelope).Methods(http.MethodPut)
	router.HandleFunc("/effects", srv.handleGetEffects).Methods(http.MethodGet)
	router.HandleFunc("/effects", srv.handlePutEffects).Methods(http.MethodPut)
	router.HandleFunc("/voices", srv.handleVoices).Methods(http.MethodGet)
	srv.router = router
	return srv
}

func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("could not write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return errors.Wrap(dec.Decode(v), "could not decode request body")
}

func (s *Server) chordResponse(id model.ChordID) (model.ChordResponse, error) {
	pitches, err := s.ctrl.Chord()
	if err != nil {
		return model.ChordResponse{}, err
	}
	return model.ChordResponse{
		ID:      id,
		Pitches: pitches,
		Names:   chord.NoteNames(pitches),
		Playing: s.ctrl.Playing(),
		Latched: s.ctrl.Latched(),
	}, nil
}

func (s *Server) respondChord(w http.ResponseWriter, status int, id model.ChordID) {
	res, err := s.chordResponse(id)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, status, res)
}

func (s *Server) handleGetChord(w http.ResponseWriter, r *http.Request) {
	s.respondChord(w, http.StatusOK, "")
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	s.respondChord(w, http.StatusOK, s.ctrl.Press())
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	s.respondChord(w, http.StatusOK, s.ctrl.Trigger())
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Release()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Params())
}

// paramsFrom resolves a request against the current params and validates
// the fields that can't be clamped.
func paramsFrom(req ParamsRequest) (controller.Params, error) {
	p := req.Params
	if req.Symbol != "" {
		root, q, err := chord.ParseSymbol(req.Symbol, p.Octave)
		if err != nil {
			return p, err
		}
		p.Root = chord.PitchClass(root)
		p.Quality = q
	}
	if _, err := chord.Lookup(p.Quality); err != nil {
		return p, err
	}
	v, err := voicing.ParsePolicy(string(p.Voicing))
	if err != nil {
		return p, err
	}
	p.Voicing = v
	m, err := model.ParseMode(string(p.Mode))
	if err != nil {
		return p, err
	}
	p.Mode = m
	return p, nil
}

func (s *Server) handlePutParams(w http.ResponseWriter, r *http.Request) {
	req := ParamsRequest{Params: s.ctrl.Params()}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := paramsFrom(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.SetParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Params())
}

var errNoSynth = errors.New("no synthesizer attached")

func (s *Server) handleGetEnvelope(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		writeError(w, http.StatusNotFound, errNoSynth)
		return
	}
	writeJSON(w, http.StatusOK, s.synth.Envelope())
}

// handlePutEnvelope applies to new voices only unless ?live=true.
func (s *Server) handlePutEnvelope(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		writeError(w, http.StatusNotFound, errNoSynth)
		return
	}
	env := s.synth.Envelope()
	if err := decode(r, &env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.synth.SetEnvelope(env)
	if live, _ := strconv.ParseBool(r.URL.Query().Get("live")); live {
		s.synth.RetargetLive()
	}
	writeJSON(w, http.StatusOK, s.synth.Envelope())
}

func (s *Server) handleGetEffects(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		writeError(w, http.StatusNotFound, errNoSynth)
		return
	}
	writeJSON(w, http.StatusOK, s.synth.Effects())
}

func (s *Server) handlePutEffects(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		writeError(w, http.StatusNotFound, errNoSynth)
		return
	}
	fx := s.synth.Effects()
	if err := decode(r, &fx); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.synth.SetEffects(fx)
	writeJSON(w, http.StatusOK, s.synth.Effects())
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices := []synth.VoiceInfo{}
	if s.synth != nil {
		voices = append(voices, s.synth.Voices()...)
	}
	writeJSON(w, http.StatusOK, voices)
}
