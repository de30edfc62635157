package transport

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/curve25519"

	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/session"
	"github.com/imelnik/syncmesh/internal/syncer"
	"github.com/imelnik/syncmesh/internal/trust"
	"github.com/imelnik/syncmesh/internal/validation"
	"github.com/imelnik/syncmesh/pkg/api"
)

// Лимиты HTTP сервера по умолчанию
const (
	defaultRateLimit  = 120
	defaultRateWindow = time.Minute
)

// SyncEngine определяет интерфейс движка синхронизации для HTTP
// обработчиков
type SyncEngine interface {
	NodeID() string
	ReceiveSecureOperations(ctx context.Context, from string, envelopes []*models.SecureCrdtOperation) (*syncer.ReceiveResult, error)
}

// Server принимает входящие батчи запечатанных операций и рукопожатия
// от других узлов сети
type Server struct {
	logger   *slog.Logger
	engine   SyncEngine
	registry trust.Registry
	sessions *session.Manager
	id       *identity.Identity
	name     string
}

// NewServer создает HTTP сервер узла синхронизации
func NewServer(id *identity.Identity, name string, engine SyncEngine, registry trust.Registry, sessions *session.Manager, logger *slog.Logger) *Server {
	return &Server{
		id:       id,
		name:     name,
		engine:   engine,
		registry: registry,
		sessions: sessions,
		logger:   logger,
	}
}

// Routes собирает маршрутизатор узла. Push закрыт аутентификацией
// устройства; рукопожатие и health check открыты - доверие устройству
// выдается оператором отдельно от знакомства.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger, "/api/v1/health"))
	r.Use(RateLimitMiddleware(defaultRateLimit, defaultRateWindow, s.logger))

	r.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/handshake", s.handleHandshake).Methods(http.MethodPost)

	push := DeviceAuthMiddleware(s.logger, s.registry)(http.HandlerFunc(s.handlePush))
	r.Handle("/api/v1/sync/push", push).Methods(http.MethodPost)

	return r
}

// handleHealth обрабатывает GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status: "ok",
		NodeID: s.engine.NodeID(),
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}

// handleHandshake обрабатывает POST /api/v1/handshake: обмен публичными
// идентичностями. Инициатор регистрируется в реестре в статусе pending,
// обе стороны выводят общий сессионный ключ. Повторное рукопожатие
// известного устройства с тем же ключом подписи обновляет сессию;
// с другим ключом - отклоняется до явного отзыва старой записи.
func (s *Server) handleHandshake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.HandshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode handshake request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	if err := validation.ValidateNodeID(req.NodeID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id", err.Error())
		return
	}
	if req.NodeID == s.id.NodeID {
		writeError(w, http.StatusBadRequest, "cannot handshake with self", "")
		return
	}
	if len(req.SigningPub) != ed25519.PublicKeySize {
		writeError(w, http.StatusBadRequest, "invalid signing key", "")
		return
	}
	if len(req.ExchangePub) != curve25519.PointSize {
		writeError(w, http.StatusBadRequest, "invalid exchange key", "")
		return
	}

	err := s.registry.Register(ctx, models.Device{
		NodeID:      req.NodeID,
		Name:        req.Name,
		SigningPub:  req.SigningPub,
		ExchangePub: req.ExchangePub,
	})
	if errors.Is(err, trust.ErrDeviceExists) {
		known, gerr := s.registry.Get(ctx, req.NodeID)
		if gerr != nil {
			s.logger.Error("failed to load known device", "error", gerr, "device_id", req.NodeID)
			writeError(w, http.StatusInternalServerError, "internal server error", "")
			return
		}
		if !bytes.Equal(known.SigningPub, req.SigningPub) {
			s.logger.Warn("handshake with mismatched signing key",
				"device_id", req.NodeID,
				"known_fingerprint", known.Fingerprint,
			)
			writeError(w, http.StatusConflict, "device is already registered with a different key", "")
			return
		}
	} else if err != nil {
		s.logger.Error("failed to register device", "error", err, "device_id", req.NodeID)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	if err := s.sessions.Establish(identity.PublicIdentity{
		NodeID:      req.NodeID,
		SigningPub:  req.SigningPub,
		ExchangePub: req.ExchangePub,
	}); err != nil {
		s.logger.Error("failed to establish session", "error", err, "device_id", req.NodeID)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	pub := s.id.Public()
	resp := api.HandshakeResponse{
		NodeID:      pub.NodeID,
		Name:        s.name,
		SigningPub:  pub.SigningPub,
		ExchangePub: pub.ExchangePub,
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("failed to encode handshake response", "error", err)
		return
	}

	s.logger.Info("handshake completed", "device_id", req.NodeID, "name", req.Name)
}

// handlePush обрабатывает POST /api/v1/sync/push: входящий батч
// запечатанных операций от аутентифицированного устройства
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// device_id установлен DeviceAuthMiddleware
	deviceID, ok := GetDeviceID(ctx)
	if !ok {
		s.logger.Error("device id not found in context")
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode push request", "error", err, "device_id", deviceID)
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	// Батч должен исходить от устройства, предъявившего токен
	if req.SourceID != deviceID {
		s.logger.Warn("push source mismatch",
			"token_device", deviceID,
			"source_id", req.SourceID,
		)
		writeError(w, http.StatusForbidden, "source does not match authenticated device", "")
		return
	}

	res, err := s.engine.ReceiveSecureOperations(ctx, deviceID, fromAPIOperations(req.Operations))
	if err != nil {
		s.logger.Error("failed to process push", "error", err, "device_id", deviceID)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	accepted := 0
	rejected := 0
	for _, d := range res.Decisions {
		if d.Rejected() {
			rejected++
		} else {
			accepted++
		}
	}

	resp := api.PushResponse{
		Clock:     res.Clock,
		Decisions: toAPIDecisions(res.Decisions),
		Accepted:  accepted,
		Rejected:  rejected,
		Conflicts: res.Result.Conflicts,
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("failed to encode push response", "error", err)
		return
	}

	s.logger.Info("push processed",
		"device_id", deviceID,
		"received", res.Result.Received,
		"merged", res.Result.Merged,
		"conflicts", res.Result.Conflicts,
		"violations", res.Result.Violations,
	)
}

// writeJSON сериализует ответ в JSON
func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeError возвращает клиенту ошибку в формате api.ErrorResponse
func writeError(w http.ResponseWriter, status int, errText, message string) {
	_ = writeJSON(w, status, api.ErrorResponse{Error: errText, Message: message})
}
