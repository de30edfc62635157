package syncer

import "log/slog"

// Phase представляет фазу попытки синхронизации с пиром.
// Терминальные фазы (Merged, Rejected, Failed) описывают исход
// конкретного батча, а не глобальное состояние: протокол реентерабелен,
// следующая попытка с тем же пиром начинается с Idle.
type Phase string

const (
	PhaseIdle        Phase = "idle"        // попытка создана
	PhaseTrustCheck  Phase = "trust_check" // проверка доверия и наличия сессии
	PhaseSealing     Phase = "sealing"     // запечатывание операций для пира
	PhaseTransmitted Phase = "transmitted" // батч передан транспорту
	PhaseAwaiting    Phase = "awaiting"    // учет подтверждения пира
	PhaseMerged      Phase = "merged"      // батч принят (или был пуст)
	PhaseRejected    Phase = "rejected"    // пир отклонил все операции батча
	PhaseFailed      Phase = "failed"      // попытка не дошла до передачи
)

// SyncResult содержит счетчики одного раунда синхронизации
type SyncResult struct {
	Peer       string // идентификатор пира
	Phase      Phase  // терминальная фаза попытки
	Sent       int    // количество переданных запечатанных операций
	Received   int    // количество операций во входящем батче
	Merged     int    // количество успешно слитых операций
	Conflicts  int    // количество разрешенных конфликтов
	Violations int    // количество отклоненных операций (политика/криптография)
	Failed     int    // количество операций, не прошедших запечатывание
}

// attempt отслеживает продвижение одной попытки синхронизации по фазам
type attempt struct {
	logger *slog.Logger
	peerID string
	phase  Phase
}

func newAttempt(peerID string, logger *slog.Logger) *attempt {
	return &attempt{peerID: peerID, phase: PhaseIdle, logger: logger}
}

// to переводит попытку в следующую фазу
func (a *attempt) to(next Phase) Phase {
	a.logger.Debug("sync phase transition",
		"peer_id", a.peerID,
		"from", string(a.phase),
		"to", string(next),
	)
	a.phase = next

	return next
}

// fail переводит попытку в терминальную фазу Failed
func (a *attempt) fail() Phase {
	return a.to(PhaseFailed)
}
