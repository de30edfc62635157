package models

import (
	"slices"
	"time"
)

// SecurityPolicy описывает декларативные правила приема операций.
// Политика — иммутабельный value object: замена политики в движке
// атомарна и действует только на будущие проверки, уже принятые
// решения не пересматриваются.
type SecurityPolicy struct {
	AllowedOperations     []string      `json:"allowed_operations"`      // allow-list типов операций
	MaxOperationAge       time.Duration `json:"max_operation_age"`       // максимальный возраст принимаемой операции
	MaxBatchSize          int           `json:"max_batch_size"`          // максимальный размер батча за один раунд синхронизации
	RequireTrustedDevices bool          `json:"require_trusted_devices"` // принимать операции только от доверенных устройств
	RequireEncryption     bool          `json:"require_encryption"`      // требовать шифрование полезной нагрузки
	RequireAuthentication bool          `json:"require_authentication"`  // требовать подпись отправителя
}

// DefaultSecurityPolicy возвращает политику по умолчанию:
// все защитные проверки включены, разрешены все встроенные типы операций.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		RequireTrustedDevices: true,
		RequireEncryption:     true,
		RequireAuthentication: true,
		MaxOperationAge:       5 * time.Minute,
		MaxBatchSize:          100,
		AllowedOperations: []string{
			OpTypeSetAdd,
			OpTypeRegisterSet,
			OpTypeCounterAdd,
		},
	}
}

// Allows проверяет, входит ли тип операции в allow-list.
func (p SecurityPolicy) Allows(opType string) bool {
	return slices.Contains(p.AllowedOperations, opType)
}

// Clone создает независимую копию политики.
func (p SecurityPolicy) Clone() SecurityPolicy {
	clone := p
	clone.AllowedOperations = slices.Clone(p.AllowedOperations)
	return clone
}
