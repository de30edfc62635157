package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/imelnik/syncmesh/internal/cache"
	"github.com/imelnik/syncmesh/internal/crdt"
	"github.com/imelnik/syncmesh/internal/events"
	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/policy"
	"github.com/imelnik/syncmesh/internal/seal"
	"github.com/imelnik/syncmesh/internal/session"
	"github.com/imelnik/syncmesh/internal/storage"
	"github.com/imelnik/syncmesh/internal/trust"
)

//go:generate moq -out transport_mock.go . Transport

// ErrPeerNotTrusted - пир не допущен к синхронизации политикой
var ErrPeerNotTrusted = errors.New("peer is not trusted")

// PushAck представляет подтверждение пира на переданный батч:
// его часы после слияния, решения по каждой операции и количество
// конфликтов, разрешенных при слиянии.
type PushAck struct {
	Clock     models.VectorClock
	Decisions map[string]models.Decision
	Conflicts int
}

// Transport доставляет запечатанные операции пиру. Сетевые детали
// (повторы, таймауты, аутентификация запроса) — ответственность
// реализации; движок не ждет доставки дольше, чем живет контекст.
type Transport interface {
	// Push передает батч запечатанных операций пиру и возвращает
	// его подтверждение
	Push(ctx context.Context, peerID string, envelopes []*models.SecureCrdtOperation) (*PushAck, error)
}

// ReceiveResult представляет итог обработки входящего батча:
// решение по каждому конверту (для ответа отправителю), часы узла
// после слияния и счетчики раунда.
type ReceiveResult struct {
	Clock     models.VectorClock
	Decisions map[string]models.Decision
	Result    *SyncResult
}

// Config описывает зависимости движка синхронизации
type Config struct {
	Identity      *identity.Identity    // идентичность локального узла
	Sessions      *session.Manager      // сессионные ключи пиров
	Trust         trust.Registry        // реестр устройств (оракул доверия + проверка подписей)
	Store         storage.StateStore    // персистентность состояния
	Transport     Transport             // доставка батчей пирам
	Sink          events.Sink           // приемник событий безопасности
	Logger        *slog.Logger          // логгер
	Policy        models.SecurityPolicy // стартовая политика безопасности
	CacheCapacity int                   // емкость кэша операций (0 = по умолчанию)
}

// Engine - фасад движка синхронизации: журнал CRDT, кэш операций,
// политика, запечатывание и протокол обмена с пирами.
//
// Движок не владеет глобальной блокировкой: журнал, кэш и реестр
// устройств защищены собственными мьютексами и работают параллельно.
// Мьютекс движка охраняет только его собственное состояние - часы
// пиров, момент последней синхронизации и путь локальной записи.
type Engine struct {
	lastSyncAt time.Time
	peerClocks map[string]models.VectorClock
	now        func() time.Time
	trust      trust.Registry
	store      storage.StateStore
	transport  Transport
	sink       events.Sink
	log        *crdt.Log
	cache      *cache.Cache
	validator  *policy.Validator
	sealer     *seal.Sealer
	sessions   *session.Manager
	logger     *slog.Logger
	nodeID     string
	mu         sync.Mutex
}

// New создает движок синхронизации и восстанавливает состояние узла
// из хранилища. Отсутствие сохраненного состояния - не ошибка, узел
// начинает с пустого журнала.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Identity == nil {
		return nil, fmt.Errorf("identity is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.Trust == nil {
		return nil, fmt.Errorf("trust registry is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	sink := cfg.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	nodeID := cfg.Identity.NodeID

	e := &Engine{
		nodeID:     nodeID,
		now:        time.Now,
		trust:      cfg.Trust,
		store:      cfg.Store,
		transport:  cfg.Transport,
		sink:       sink,
		cache:      cache.New(cfg.CacheCapacity),
		sessions:   cfg.Sessions,
		logger:     logger,
		peerClocks: make(map[string]models.VectorClock),
	}

	// Реестр устройств служит и оракулом доверия, и проверкой подписей
	e.validator = policy.NewValidator(cfg.Policy, cfg.Trust, cfg.Trust, sink, logger)
	e.sealer = seal.NewSealer(nodeID, cfg.Sessions, cfg.Identity, sink, logger)

	if err := e.restore(ctx); err != nil {
		return nil, err
	}

	return e, nil
}

// restore загружает сохраненное состояние узла и заполняет журнал и кэш
func (e *Engine) restore(ctx context.Context) error {
	state, err := e.store.LoadState(ctx, e.nodeID)
	if err != nil {
		if errors.Is(err, storage.ErrStateNotFound) {
			e.log = crdt.NewLog(e.nodeID)
			e.logger.Info("no saved state, starting fresh", "node_id", e.nodeID)
			return nil
		}
		return fmt.Errorf("failed to load state: %w", err)
	}

	log, err := crdt.NewLogFromState(state)
	if err != nil {
		return fmt.Errorf("failed to restore log: %w", err)
	}
	e.log = log
	e.lastSyncAt = state.LastSyncAt

	// Кэш пополняется журналом в порядке создания операций, чтобы
	// недоставленные операции пережили рестарт
	cached := 0
	for _, op := range log.Operations() {
		if err := e.cache.Add(op); err != nil {
			break
		}
		cached++
	}

	e.logger.Info("state restored",
		"node_id", e.nodeID,
		"operations", log.Size(),
		"cached", cached,
	)

	return nil
}

// NodeID возвращает идентификатор локального узла.
func (e *Engine) NodeID() string {
	return e.nodeID
}

// Clock возвращает копию текущих векторных часов узла.
func (e *Engine) Clock() models.VectorClock {
	return e.log.Clock()
}

// Policy возвращает копию действующей политики безопасности.
func (e *Engine) Policy() models.SecurityPolicy {
	return e.validator.Policy()
}

// SetPolicy атомарно заменяет политику безопасности.
// Действует только на будущие проверки.
func (e *Engine) SetPolicy(p models.SecurityPolicy) {
	e.validator.SetPolicy(p)
}

// Record создает локальную операцию: продвигает часы, применяет
// нагрузку к доменному состоянию, кладет операцию в кэш для передачи
// пирам и сохраняет состояние. Возвращает cache.ErrCacheFull, когда
// кэш исчерпан, - вызывающий может синхронизироваться, почистить кэш
// и повторить.
func (e *Engine) Record(ctx context.Context, opType string, payload []byte) (*models.CrdtOperation, error) {
	e.mu.Lock()
	if e.cache.Full() {
		e.mu.Unlock()
		return nil, fmt.Errorf("cannot record operation: %w", cache.ErrCacheFull)
	}

	op, err := e.log.Record(opType, payload, e.now().UTC())
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	if err := e.cache.Add(op); err != nil {
		// Операция уже применена к состоянию; без кэша она не будет
		// отправлена пирам, но локальная консистентность не нарушена
		e.logger.Warn("operation applied but not cached",
			"operation_id", op.ID,
			"error", err,
		)
	}
	e.mu.Unlock()

	e.persist(ctx)

	return op, nil
}

// SyncWith выполняет исходящий раунд синхронизации с пиром:
// проверка доверия и сессии, отбор причинно новых для пира операций,
// запечатывание, передача и учет подтверждения. Сбой запечатывания
// отдельной операции не прерывает батч. Результат возвращается всегда;
// ошибка дополнительно сигнализирует, что попытка не дошла до передачи.
func (e *Engine) SyncWith(ctx context.Context, peerID string) (*SyncResult, error) {
	att := newAttempt(peerID, e.logger)
	result := &SyncResult{Peer: peerID, Phase: PhaseIdle}

	att.to(PhaseTrustCheck)
	pol := e.validator.Policy()
	if pol.RequireTrustedDevices {
		trusted, err := e.trust.IsTrusted(ctx, peerID)
		if err != nil {
			result.Phase = att.fail()
			return result, fmt.Errorf("trust check for %s failed: %w", peerID, err)
		}
		if !trusted {
			result.Phase = att.fail()
			return result, fmt.Errorf("%w: %s", ErrPeerNotTrusted, peerID)
		}
	}
	if !e.sessions.Has(peerID) {
		result.Phase = att.fail()
		return result, fmt.Errorf("%w: %s", seal.ErrNoSession, peerID)
	}

	att.to(PhaseSealing)
	eligible := e.cache.EligibleFor(e.peerClock(peerID))
	envelopes := make([]*models.SecureCrdtOperation, 0, len(eligible))
	for _, op := range eligible {
		env, err := e.sealer.Seal(ctx, op, peerID)
		if err != nil {
			result.Failed++
			continue
		}
		envelopes = append(envelopes, env)
	}

	// Пиру нечего передавать: все операции кэша он причинно видел.
	// Пустой батч не стоит сетевого раунда и чеканки токена
	if len(envelopes) == 0 {
		if result.Failed > 0 {
			result.Phase = att.fail()
		} else {
			result.Phase = att.to(PhaseMerged)
			e.markSynced()
		}
		return result, nil
	}

	att.to(PhaseTransmitted)
	ack, err := e.transport.Push(ctx, peerID, envelopes)
	if err != nil {
		result.Phase = att.fail()
		return result, fmt.Errorf("push to %s failed: %w", peerID, err)
	}
	result.Sent = len(envelopes)

	att.to(PhaseAwaiting)
	for _, d := range ack.Decisions {
		if d.Rejected() {
			result.Violations++
		}
	}
	result.Conflicts = ack.Conflicts
	e.rememberPeerClock(peerID, ack.Clock)
	e.markSynced()

	if result.Sent > 0 && result.Violations == result.Sent {
		result.Phase = att.to(PhaseRejected)
	} else {
		result.Phase = att.to(PhaseMerged)
	}

	e.sink.Publish(events.New(
		models.EventSyncCompleted,
		models.SeverityInfo,
		peerID,
		"outbound sync round completed",
		map[string]string{
			"sent":       strconv.Itoa(result.Sent),
			"violations": strconv.Itoa(result.Violations),
			"failed":     strconv.Itoa(result.Failed),
		},
	))

	e.persist(ctx)

	return result, nil
}

// ReceiveSecureOperations обрабатывает входящий батч запечатанных
// операций: ограничивает размер батча политикой (лишние операции
// отбрасываются в этом раунде с отчетом), затем последовательно
// для каждого конверта - проверка политики, распечатывание, слияние.
// Политика читается один раз на вызов: горячая замена действует
// со следующего батча.
func (e *Engine) ReceiveSecureOperations(ctx context.Context, from string, envelopes []*models.SecureCrdtOperation) (*ReceiveResult, error) {
	res := &ReceiveResult{
		Decisions: make(map[string]models.Decision, len(envelopes)),
		Result:    &SyncResult{Peer: from, Phase: PhaseIdle, Received: len(envelopes)},
	}

	// Один снимок политики на весь вызов: лимит батча, усечение
	// и проверка каждого конверта видят одну и ту же версию
	pol := e.validator.Policy()

	batch := envelopes
	if d := e.validator.CheckBatchSize(pol, len(envelopes)); d.Rejected() {
		for _, env := range envelopes[pol.MaxBatchSize:] {
			res.Decisions[env.ID] = d
			res.Result.Violations++
		}
		batch = envelopes[:pol.MaxBatchSize]
		e.logger.Warn("inbound batch truncated",
			"device_id", from,
			"received", len(envelopes),
			"limit", pol.MaxBatchSize,
		)
	}

	for _, env := range batch {
		if err := ctx.Err(); err != nil {
			res.Result.Phase = PhaseFailed
			return res, err
		}

		decision := e.validator.EvaluateWith(ctx, env, pol)
		if decision.Rejected() {
			res.Decisions[env.ID] = decision
			res.Result.Violations++
			continue
		}

		op, decision := e.sealer.Unseal(ctx, env)
		if decision.Rejected() {
			res.Decisions[env.ID] = decision
			res.Result.Violations++
			continue
		}

		applied, err := e.log.MergeRemote(op)
		if err != nil {
			res.Decisions[env.ID] = models.Reject(models.ViolationDecodeFailed,
				fmt.Sprintf("merge failed: %v", err))
			res.Result.Violations++
			continue
		}

		if applied.Applied {
			res.Result.Merged++
			e.relay(op)
		}
		if applied.Conflict {
			res.Result.Conflicts++
		}
		res.Decisions[env.ID] = models.Accept()
		e.rememberPeerClock(from, env.Clock)
	}

	res.Clock = e.log.Clock()
	if res.Result.Received > 0 && res.Result.Violations == res.Result.Received {
		res.Result.Phase = PhaseRejected
	} else {
		res.Result.Phase = PhaseMerged
	}

	e.markSynced()
	e.persist(ctx)

	e.sink.Publish(events.New(
		models.EventSyncCompleted,
		models.SeverityInfo,
		from,
		"inbound batch processed",
		map[string]string{
			"received":   strconv.Itoa(res.Result.Received),
			"merged":     strconv.Itoa(res.Result.Merged),
			"conflicts":  strconv.Itoa(res.Result.Conflicts),
			"violations": strconv.Itoa(res.Result.Violations),
		},
	))

	return res, nil
}

// RevokeDevice отзывает устройство: переводит его в статус revoked,
// сбрасывает сессию и забывает его часы. Дальнейшие операции
// устройства отклоняются политикой как untrusted_device.
func (e *Engine) RevokeDevice(ctx context.Context, deviceID string) error {
	if err := e.trust.Revoke(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to revoke device %s: %w", deviceID, err)
	}

	e.sessions.Drop(deviceID)

	e.mu.Lock()
	delete(e.peerClocks, deviceID)
	e.mu.Unlock()

	e.sink.Publish(events.New(
		models.EventDeviceRevoked,
		models.SeverityWarning,
		deviceID,
		"device revoked",
		nil,
	))
	e.logger.Info("device revoked", "device_id", deviceID)

	return nil
}

// Cleanup удаляет из кэша операции старше максимального возраста
// политики. Явный вызов обслуживания: движок не чистит кэш сам,
// график выбирает вызывающая сторона.
func (e *Engine) Cleanup() int {
	pol := e.validator.Policy()
	if pol.MaxOperationAge <= 0 {
		return 0
	}

	evicted := e.cache.Cleanup(pol.MaxOperationAge, e.now().UTC())
	if evicted > 0 {
		e.logger.Info("operation cache cleaned", "evicted", evicted)
	}

	return evicted
}

// CacheLen возвращает количество операций, ожидающих доставки пирам.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// SetMembers возвращает элементы именованного множества.
func (e *Engine) SetMembers(name string) []string {
	return e.log.SetMembers(name)
}

// Register возвращает значение LWW регистра.
func (e *Engine) Register(name string) (string, bool) {
	return e.log.Register(name)
}

// Counter возвращает значение именованного счетчика.
func (e *Engine) Counter(name string) int64 {
	return e.log.Counter(name)
}

// Close сохраняет финальное состояние узла. Хранилищами (bbolt, sqlite)
// владеет вызывающая сторона и закрывает их сама.
func (e *Engine) Close(ctx context.Context) error {
	state := e.log.Snapshot(e.syncedAt())
	if err := e.store.SaveState(ctx, state); err != nil {
		return fmt.Errorf("failed to save final state: %w", err)
	}

	return nil
}

// relay кладет принятую удаленную операцию в кэш, чтобы она могла
// быть передана пирам, которые ее еще не видели. Переполненный кэш
// не сбой слияния: операция уже применена.
func (e *Engine) relay(op *models.CrdtOperation) {
	if err := e.cache.Add(op); err != nil {
		e.logger.Warn("operation merged but not cached for relay",
			"operation_id", op.ID,
			"error", err,
		)
	}
}

// peerClock возвращает последние известные часы пира
// (nil, если пир еще не отчитывался).
func (e *Engine) peerClock(peerID string) models.VectorClock {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.peerClocks[peerID]
}

// rememberPeerClock сливает новые сведения о часах пира с уже
// известными: часы пира никогда не откатываются назад.
func (e *Engine) rememberPeerClock(peerID string, clock models.VectorClock) {
	if len(clock) == 0 {
		return
	}

	e.mu.Lock()
	e.peerClocks[peerID] = e.peerClocks[peerID].Merge(clock)
	e.mu.Unlock()
}

func (e *Engine) markSynced() {
	e.mu.Lock()
	e.lastSyncAt = e.now().UTC()
	e.mu.Unlock()
}

func (e *Engine) syncedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastSyncAt
}

// persist сохраняет снапшот состояния. Сбой персистентности не
// прерывает синхронизацию: состояние переживет следующий успешный
// снапшот, а журнал восстановим от пиров.
func (e *Engine) persist(ctx context.Context) {
	state := e.log.Snapshot(e.syncedAt())
	if err := e.store.SaveState(ctx, state); err != nil {
		e.logger.Warn("failed to persist state", "error", err)
	}
}
