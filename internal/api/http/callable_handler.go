package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"harvest-wallet-backend/internal/api/callable"
	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/security"
	"harvest-wallet-backend/internal/service"
)

const maxBodyBytes = 1 << 20

// CallableHandler serves the ledger operations over the callable-function
// HTTP protocol: POST {"data": {...}} answered with {"result": {...}} or
// {"error": {"status": "...", "message": "..."}}.
type CallableHandler struct {
	ops      *callable.Operations
	verifier security.TokenVerifier
}

func NewCallableHandler(walletSvc service.WalletService, verifier security.TokenVerifier) *CallableHandler {
	return &CallableHandler{
		ops:      callable.NewOperations(walletSvc),
		verifier: verifier,
	}
}

type callableRequest struct {
	Data json.RawMessage `json:"data"`
}

type callableError struct {
	Status  domain.ErrorKind `json:"status"`
	Message string           `json:"message"`
}

// RegisterCallableRoutes mounts one POST route per operation plus GET /healthz.
func RegisterCallableRoutes(router *mux.Router, h *CallableHandler) {
	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(h.authenticate)
	for name, fn := range h.ops.ByName() {
		api.HandleFunc("/"+name, h.handle(name, fn)).Methods(http.MethodPost)
	}
}

// NewRouter builds the HTTP entry point with CORS applied.
func NewRouter(h *CallableHandler, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	RegisterCallableRoutes(router, h)
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})(router)
}

func (h *CallableHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate attaches the caller of a valid bearer token. Anything else is
// refused before the body is read.
func (h *CallableHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, domain.Unauthenticated(domain.ErrMissingCaller))
			return
		}
		caller, err := h.verifier.Verify(r.Context(), security.BearerToken(header))
		if err != nil {
			logger.Warn("Rejected token", "path", r.URL.Path, "error", err)
			writeError(w, domain.Unauthenticated(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(security.WithCaller(r.Context(), caller)))
	})
}

func (h *CallableHandler) handle(name string, fn callable.Func) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := decodeBody(r)
		if err != nil {
			writeError(w, err)
			return
		}
		result, err := fn(r.Context(), data)
		if err != nil {
			writeError(w, err)
			return
		}
		logger.Debug("Callable succeeded", "operation", name)
		writeJSON(w, http.StatusOK, map[string]any{"result": result})
	}
}

func decodeBody(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.InvalidArgument("could not read request body")
	}
	var req callableRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, domain.InvalidArgument("request body must be a JSON object with a data field")
	}
	data := map[string]any{}
	if len(req.Data) == 0 || string(req.Data) == "null" {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader(req.Data))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, domain.InvalidArgument("data must be a JSON object")
	}
	return data, nil
}

func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error("Unclassified error", "error", err)
	}
	writeJSON(w, statusFor(kind), map[string]any{"error": callableError{Status: kind, Message: msg}})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindInvalidArgument, domain.KindFailedPrecondition:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to write response", "error", err)
	}
}
