package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/codebreaker/internal/game"
	"github.com/robalobadob/codebreaker/internal/store"
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// classify maps an engine error to a status code and body.
func classify(err error) (int, apiError) {
	var (
		lt  *game.InvalidLifecycleTransitionError
		ts  *game.InvalidTurnStateError
		ua  *game.UnauthorizedActionError
		iw  *game.InsufficientWordsError
		ne  *game.NoEligiblePlayersError
		ve  *game.ValidationError
		ia  *game.InvalidAllocationError
		nf  *game.NotFoundError
		inv *game.InvariantError
	)
	switch {
	case errors.As(err, &inv):
		return http.StatusInternalServerError, apiError{Error: "internal"}
	case errors.As(err, &lt):
		return http.StatusConflict, apiError{Error: "invalid_transition", Message: lt.Error()}
	case errors.As(err, &ts):
		return http.StatusConflict, apiError{Error: "invalid_turn_state", Message: ts.Error()}
	case errors.As(err, &ua):
		return http.StatusForbidden, apiError{Error: "forbidden", Message: ua.Error()}
	case errors.As(err, &iw):
		return http.StatusUnprocessableEntity, apiError{Error: "insufficient_words", Message: iw.Error(),
			Hint: fmt.Sprintf("pick a deck with at least %d words or a smaller board", iw.Requested)}
	case errors.As(err, &ne):
		return http.StatusUnprocessableEntity, apiError{Error: "no_eligible_players", Message: ne.Error(),
			Hint: "every team needs an active player; reconnect or move a player"}
	case errors.As(err, &ve):
		return http.StatusBadRequest, apiError{Error: "invalid_input", Message: ve.Error()}
	case errors.As(err, &ia):
		return http.StatusBadRequest, apiError{Error: "invalid_allocation", Message: ia.Error()}
	case errors.As(err, &nf):
		return http.StatusNotFound, apiError{Error: "not_found", Message: nf.Error()}
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, apiError{Error: "conflict", Message: "the game changed, reload and retry"}
	default:
		return http.StatusInternalServerError, apiError{Error: "internal"}
	}
}

// writeError sends err as JSON. Server-side failures are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &game.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return nil
}
