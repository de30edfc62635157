package crdt

import "errors"

var (
	// ErrUnknownOperationType — операция несет тип, для которого
	// нет merge-функции.
	ErrUnknownOperationType = errors.New("unknown operation type")
	// ErrMalformedPayload — нагрузка операции не декодируется
	// в ожидаемую структуру.
	ErrMalformedPayload = errors.New("malformed operation payload")
)
