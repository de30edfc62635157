package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/syncer"
	"github.com/imelnik/syncmesh/pkg/api"
)

// ErrUnknownPeer - адрес пира не зарегистрирован в клиенте
var ErrUnknownPeer = errors.New("peer address is not registered")

// defaultMaxRetries - максимум повторов одной передачи
const defaultMaxRetries = 3

// ServerError - ответ узла со статусом вне 2xx. Повтор передачи
// не изменит решения сервера, поэтому такие ошибки не повторяются.
type ServerError struct {
	Message string
	Status  int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// Client представляет HTTP клиент узла: рукопожатия и передача
// запечатанных операций пирам. Реализует транспорт движка
// синхронизации.
type Client struct {
	httpClient *http.Client
	id         *identity.Identity
	logger     *slog.Logger
	addrs      map[string]string
	newBackOff func() backoff.BackOff
	tokenTTL   time.Duration
	maxRetries uint64
	mu         sync.RWMutex
}

// Compile-time check that Client implements syncer.Transport
var _ syncer.Transport = (*Client)(nil)

// NewClient создает API клиент для идентичности узла
func NewClient(id *identity.Identity, logger *slog.Logger) *Client {
	return &Client{
		id:         id,
		logger:     logger,
		addrs:      make(map[string]string),
		tokenTTL:   DefaultTokenTTL,
		maxRetries: defaultMaxRetries,
		newBackOff: defaultBackOff,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// defaultBackOff строит стратегию повторов одной передачи
func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second
	return bo
}

// AddPeer регистрирует адрес пира. Идентификатор пира становится
// известен из ответа на рукопожатие.
func (c *Client) AddPeer(peerID, baseURL string) {
	c.mu.Lock()
	c.addrs[peerID] = baseURL
	c.mu.Unlock()
}

// PeerAddr возвращает зарегистрированный адрес пира
func (c *Client) PeerAddr(peerID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	addr, ok := c.addrs[peerID]
	return addr, ok
}

// Handshake обменивается публичными идентичностями с узлом по адресу
// baseURL и запоминает адрес пира под его идентификатором. Регистрация
// пира в реестре доверия и установление сессии - дело вызывающей
// стороны: клиент только доставляет ключи.
func (c *Client) Handshake(ctx context.Context, baseURL, name string) (*api.HandshakeResponse, error) {
	pub := c.id.Public()
	req := api.HandshakeRequest{
		NodeID:      pub.NodeID,
		Name:        name,
		SigningPub:  pub.SigningPub,
		ExchangePub: pub.ExchangePub,
	}

	var resp api.HandshakeResponse
	if err := c.doRequest(ctx, http.MethodPost, baseURL+"/api/v1/handshake", "", req, &resp); err != nil {
		return nil, fmt.Errorf("handshake request failed: %w", err)
	}

	c.AddPeer(resp.NodeID, baseURL)
	c.logger.Info("handshake completed", "peer_id", resp.NodeID, "peer_name", resp.Name)

	return &resp, nil
}

// Push передает батч запечатанных операций пиру и возвращает его
// подтверждение. Сетевые сбои повторяются с экспоненциальной задержкой;
// ответ сервера с любым статусом повторов не вызывает.
func (c *Client) Push(ctx context.Context, peerID string, envelopes []*models.SecureCrdtOperation) (*syncer.PushAck, error) {
	baseURL, ok := c.PeerAddr(peerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, peerID)
	}

	token, err := MintDeviceToken(c.id.SigningKey, c.id.NodeID, c.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to mint device token: %w", err)
	}

	req := api.PushRequest{
		SourceID:   c.id.NodeID,
		Operations: toAPIOperations(envelopes),
	}

	var resp api.PushResponse
	operation := func() error {
		err := c.doRequest(ctx, http.MethodPost, baseURL+"/api/v1/sync/push", token, req, &resp)
		var srvErr *ServerError
		if errors.As(err, &srvErr) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("push to %s failed: %w", peerID, err)
	}

	return &syncer.PushAck{
		Clock:     resp.Clock,
		Decisions: fromAPIDecisions(resp.Decisions),
		Conflicts: resp.Conflicts,
	}, nil
}

// doRequest выполняет HTTP запрос. Непустой token уходит в заголовок
// Authorization. Ответ со статусом вне 2xx возвращается как *ServerError.
func (c *Client) doRequest(ctx context.Context, method, url, token string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return &ServerError{Status: resp.StatusCode, Message: errResp.Error}
		}
		return &ServerError{Status: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
