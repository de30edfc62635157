package api

// HandshakeRequest представляет запрос на обмен публичными ключами.
// Устройство-инициатор передает свою публичную идентичность, чтобы
// обе стороны могли вывести общий сессионный ключ (ECDH) и
// зарегистрировать друг друга в реестре устройств (в статусе pending).
type HandshakeRequest struct {
	NodeID      string `json:"node_id"`      // идентификатор устройства-инициатора
	Name        string `json:"name"`         // человекочитаемое имя устройства
	SigningPub  []byte `json:"signing_pub"`  // публичный ключ Ed25519 (base64)
	ExchangePub []byte `json:"exchange_pub"` // публичный ключ X25519 (base64)
}

// HandshakeResponse представляет ответную идентичность принимающего узла
type HandshakeResponse struct {
	NodeID      string `json:"node_id"`      // идентификатор принимающего устройства
	Name        string `json:"name"`         // человекочитаемое имя устройства
	SigningPub  []byte `json:"signing_pub"`  // публичный ключ Ed25519 (base64)
	ExchangePub []byte `json:"exchange_pub"` // публичный ключ X25519 (base64)
}

// HealthResponse представляет ответ проверки здоровья узла
type HealthResponse struct {
	Status string `json:"status"`  // "ok"
	NodeID string `json:"node_id"` // идентификатор узла
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
