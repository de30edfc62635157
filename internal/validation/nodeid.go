package validation

import (
	"fmt"
	"regexp"
)

// NodeIDPattern определяет допустимый формат идентификатора узла.
// Только латинские буквы (a-z, A-Z), цифры (0-9), дефис (-), нижнее
// подчеркивание (_). Длина: 3-64 символа.
// Идентификатор входит в векторные часы, имена файлов и subject JWT,
// поэтому формат намеренно консервативный.
var NodeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

// OperationTypePattern определяет структурный формат типа операции:
// строчные латинские буквы и подчеркивания, 3-32 символа.
// Допустимость типа по политике проверяется отдельно.
var OperationTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,31}$`)

const (
	// MinNodeIDLen минимальная длина идентификатора узла
	MinNodeIDLen = 3
	// MaxNodeIDLen максимальная длина идентификатора узла
	MaxNodeIDLen = 64
	// MinPassphraseLen минимальная длина парольной фразы хранилища ключей
	MinPassphraseLen = 12
)

// ValidateNodeID проверяет, что идентификатор узла соответствует требованиям
func ValidateNodeID(nodeID string) error {
	if nodeID == "" {
		return fmt.Errorf("node id cannot be empty")
	}

	if len(nodeID) < MinNodeIDLen {
		return fmt.Errorf("node id must be at least %d characters long", MinNodeIDLen)
	}

	if len(nodeID) > MaxNodeIDLen {
		return fmt.Errorf("node id must not exceed %d characters", MaxNodeIDLen)
	}

	if !NodeIDPattern.MatchString(nodeID) {
		return fmt.Errorf("node id can only contain letters (a-z, A-Z), numbers (0-9), hyphens (-), and underscores (_)")
	}

	return nil
}

// ValidateOperationType проверяет структурный формат типа операции.
// Проверка не подменяет allow-list политики безопасности: она отсекает
// мусор до того, как тип попадет в журналы и в часы.
func ValidateOperationType(opType string) error {
	if opType == "" {
		return fmt.Errorf("operation type cannot be empty")
	}

	if !OperationTypePattern.MatchString(opType) {
		return fmt.Errorf("operation type must be lowercase letters, digits and underscores (3-32 characters)")
	}

	return nil
}

// ValidatePassphrase проверяет минимальные требования к парольной фразе
// хранилища ключей. Минимум 12 символов.
func ValidatePassphrase(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase cannot be empty")
	}

	if len(passphrase) < MinPassphraseLen {
		return fmt.Errorf("passphrase must be at least %d characters long", MinPassphraseLen)
	}

	return nil
}
