package models

// Доменные полезные нагрузки операций. Сериализуются в JSON и
// попадают в CrdtOperation.Payload; merge-функция выбирается
// по CrdtOperation.Type.

// SetAddPayload — добавление элемента в именованное grow-only множество.
// Добавление коммутативно и идемпотентно само по себе.
type SetAddPayload struct {
	Set    string `json:"set"`    // имя множества
	Member string `json:"member"` // добавляемый элемент
}

// RegisterSetPayload — запись значения в именованный LWW регистр.
// Конкурентные записи разрешаются по (Timestamp, NodeID) операции.
type RegisterSetPayload struct {
	Register string `json:"register"` // имя регистра
	Value    string `json:"value"`    // записываемое значение
}

// CounterAddPayload — прибавление дельты к именованному счетчику.
// Сложение коммутативно; идемпотентность обеспечивает дедупликация
// операций движком по паре (node, counter).
type CounterAddPayload struct {
	Counter string `json:"counter"` // имя счетчика
	Delta   int64  `json:"delta"`   // прибавляемое значение (может быть отрицательным)
}
