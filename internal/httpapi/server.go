package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ksundaram/teller/internal/teller/service"
	"github.com/ksundaram/teller/internal/teller/types"
)

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Auth     *service.Authenticator
	Sessions *service.SessionManager
	Engine   *service.TransactionEngine
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	auth       *service.Authenticator
	sessions   *service.SessionManager
	engine     *service.TransactionEngine
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:   d.Logger,
		mux:      mux,
		auth:     d.Auth,
		sessions: d.Sessions,
		engine:   d.Engine,
	}

	mux.HandleFunc("POST /v1/card/insert", s.handleInsertCard)
	mux.HandleFunc("POST /v1/card/validate_pin", s.handleValidatePIN)
	mux.HandleFunc("POST /v1/card/change_pin", s.handleChangePIN)
	mux.HandleFunc("POST /v1/card/block", s.handleBlockCard)
	mux.HandleFunc("POST /v1/session/start", s.handleStartSession)
	mux.HandleFunc("POST /v1/session/end", s.handleEndSession)
	mux.HandleFunc("POST /v1/withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /v1/deposit", s.handleDeposit)
	mux.HandleFunc("POST /v1/transfer", s.handleTransfer)
	mux.HandleFunc("GET /v1/statement", s.handleStatement)
	mux.HandleFunc("GET /v1/balance", s.handleBalance)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// decodeBody rejects unknown fields so a client typo fails loudly instead
// of silently zeroing a field.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) handleInsertCard(w http.ResponseWriter, r *http.Request) {
	var req types.InsertCardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.sessions.InsertCard(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, "card/insert", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidatePIN(w http.ResponseWriter, r *http.Request) {
	var req types.ValidatePINRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.auth.Authenticate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, "card/validate_pin", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChangePIN(w http.ResponseWriter, r *http.Request) {
	var req types.ChangePINRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := s.auth.ChangePIN(r.Context(), req); err != nil {
		s.writeServiceError(w, "card/change_pin", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleBlockCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID string `json:"card_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := s.auth.BlockCard(r.Context(), req.CardID); err != nil {
		s.writeServiceError(w, "card/block", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req types.StartSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.sessions.Start(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, "session/start", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := s.sessions.End(r.Context(), req.SessionID); err != nil {
		s.writeServiceError(w, "session/end", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req types.WithdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.engine.Withdraw(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, "withdraw", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req types.DepositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.engine.Deposit(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, "deposit", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req types.TransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.engine.Transfer(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, "transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	cardID := r.URL.Query().Get("card_id")
	if cardID == "" {
		writeError(w, http.StatusBadRequest, "missing_card_id", "card_id query parameter is required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 50 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer between 1 and 50")
			return
		}
		limit = n
	}

	entries, err := s.engine.MiniStatement(r.Context(), cardID, limit)
	if err != nil {
		s.writeServiceError(w, "statement", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": entries})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing_account_id", "account_id query parameter is required")
		return
	}

	balance, err := s.engine.Balance(r.Context(), accountID)
	if err != nil {
		s.writeServiceError(w, "balance", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything
// unrecognized is treated as an infrastructure failure: logged and
// reported as a 500 without leaking internals.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	var (
		invalidPIN  *service.InvalidPINError
		pinBlocked  *service.PINBlockedError
		cardLocked  *service.CardLockedError
		permBlocked *service.PermanentlyBlockedError
		notDisp     *service.NotDispensableError
	)

	switch {
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrSenderNotFound),
		errors.Is(err, service.ErrReceiverNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrSameAccount),
		errors.Is(err, service.ErrNoCashInserted),
		errors.Is(err, service.ErrInvalidNoteCount),
		errors.Is(err, service.ErrSamePIN):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.As(err, &invalidPIN):
		writeErrorDetails(w, http.StatusUnauthorized, "invalid_pin", err.Error(),
			map[string]any{"attempts_left": invalidPIN.AttemptsLeft})

	case errors.Is(err, service.ErrWrongOldPIN):
		writeError(w, http.StatusUnauthorized, "wrong_old_pin", err.Error())

	case errors.As(err, &pinBlocked):
		writeErrorDetails(w, http.StatusLocked, "pin_blocked", err.Error(),
			map[string]any{"unlock_at": pinBlocked.UnlockAt.UTC().Format(time.RFC3339)})

	case errors.As(err, &cardLocked):
		writeErrorDetails(w, http.StatusLocked, "card_locked", err.Error(),
			map[string]any{"unlock_at": cardLocked.UnlockAt.UTC().Format(time.RFC3339)})

	case errors.As(err, &permBlocked):
		writeError(w, http.StatusForbidden, "card_blocked", err.Error())

	case errors.Is(err, service.ErrCardExpired),
		errors.Is(err, service.ErrCardNotActive),
		errors.Is(err, service.ErrCardInUse),
		errors.Is(err, service.ErrCardInvalid),
		errors.Is(err, service.ErrDailyLimitExceeded):
		writeError(w, http.StatusForbidden, "not_permitted", err.Error())

	case errors.As(err, &notDisp):
		writeErrorDetails(w, http.StatusConflict, "amount_not_dispensable", err.Error(),
			map[string]any{"min_note": notDisp.MinNote})

	case errors.Is(err, service.ErrSessionAlreadyActive),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInsufficientCash),
		errors.Is(err, service.ErrDenominationInfeasible),
		errors.Is(err, service.ErrMachineOffline):
		writeError(w, http.StatusConflict, "rejected", err.Error())

	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
