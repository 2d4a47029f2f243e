package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"clickwar/internal/domain"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

var errInternal = errors.New("internal server error")

func connectCode(kind domain.Kind) connect.Code {
	switch kind {
	case domain.KindValidation:
		return connect.CodeInvalidArgument
	case domain.KindResource:
		return connect.CodeFailedPrecondition
	case domain.KindBlocked, domain.KindAuthorization:
		return connect.CodePermissionDenied
	case domain.KindNotFound:
		return connect.CodeNotFound
	default:
		return connect.CodeInternal
	}
}

func httpStatus(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindResource:
		return http.StatusBadRequest
	case domain.KindBlocked, domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// toConnectError hides storage details from callers; they are logged by the
// service that hit them.
func toConnectError(err error) *connect.Error {
	kind := domain.KindOf(err)
	if kind == domain.KindStorage {
		return connect.NewError(connect.CodeInternal, errInternal)
	}
	cerr := connect.NewError(connectCode(kind), err)
	var cd *domain.CooldownError
	if errors.As(err, &cd) {
		cerr.Meta().Set("remaining-ms", strconv.FormatInt(cd.Remaining.Milliseconds(), 10))
	}
	return cerr
}

type errorBody struct {
	Error       string `json:"error"`
	Kind        string `json:"kind"`
	RemainingMs int64  `json:"remainingMs,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	body := errorBody{Error: err.Error(), Kind: kind.String()}
	if kind == domain.KindStorage {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		body.Error = errInternal.Error()
	}
	var cd *domain.CooldownError
	if errors.As(err, &cd) {
		body.RemainingMs = cd.Remaining.Milliseconds()
	}
	writeJSON(w, httpStatus(kind), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
