package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"raffle/internal/clock"
	"raffle/internal/models"
	"raffle/internal/oracle"
	"raffle/internal/payout"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Settings are fixed for the lifetime of a RaffleService.
type Settings struct {
	EntranceFee *uint256.Int
	// Interval is the minimum number of seconds a round stays open.
	Interval int64
	Request  oracle.RequestParams
	// FirstRound numbers the first round; zero means 1.
	FirstRound uint64
}

// RaffleService owns the round lifecycle: it admits entries while the round
// is open, closes it when upkeep is due, and pays the winner once the
// randomness for the round arrives.
type RaffleService struct {
	mu sync.RWMutex
	// notifyMu serializes delivery of outbox so observers see events in
	// the order they were emitted.
	notifyMu sync.Mutex
	outbox   []models.Event

	ledger   *EntryLedger
	broker   *RandomnessBroker
	sink     payout.Sink
	clock    clock.Clock
	observer observers

	interval     int64
	state        models.RaffleState
	round        uint64
	roundToken   uuid.UUID
	openedAt     int64
	recentWinner *models.WinnerRecord
}

var _ oracle.Consumer = (*RaffleService)(nil)

// NewRaffleService creates a raffle whose first round opens now.
func NewRaffleService(settings Settings, coordinator oracle.RandomWordsRequester, sink payout.Sink, clk clock.Clock, obs ...Observer) (*RaffleService, error) {
	if settings.EntranceFee == nil || settings.EntranceFee.IsZero() {
		return nil, errors.New("entrance fee must be positive")
	}
	if settings.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if coordinator == nil || sink == nil || clk == nil {
		return nil, errors.New("coordinator, payout sink and clock are required")
	}

	first := settings.FirstRound
	if first == 0 {
		first = 1
	}

	return &RaffleService{
		ledger:     NewEntryLedger(settings.EntranceFee),
		broker:     NewRandomnessBroker(coordinator, settings.Request),
		sink:       sink,
		clock:      clk,
		observer:   observers(obs),
		interval:   settings.Interval,
		state:      models.StateOpen,
		round:      first,
		roundToken: uuid.New(),
		openedAt:   clk.Now(),
	}, nil
}

// Enter admits one entry for participant paying feePaid.
func (s *RaffleService) Enter(ctx context.Context, participant common.Address, feePaid *uint256.Int) error {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.ledger.Admit(s.state, participant, feePaid)
	if err != nil {
		return err
	}

	s.emit(models.Event{
		Kind:        models.EventEntryAdmitted,
		Round:       s.round,
		Participant: participant,
		Balance:     balance,
	})
	return nil
}

// CheckUpkeep evaluates the upkeep predicate against the live round.
func (s *RaffleService) CheckUpkeep(now int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upkeepNeededLocked(now)
}

func (s *RaffleService) upkeepNeededLocked(now int64) bool {
	return IsUpkeepNeeded(s.state, s.ledger.Count(), &s.ledger.balance, s.openedAt, s.interval, now)
}

// PerformUpkeep closes the round at the clock's current time.
func (s *RaffleService) PerformUpkeep(ctx context.Context) (models.RequestID, error) {
	return s.CloseRound(ctx, s.clock.Now())
}

// CloseRound re-checks upkeep at now and, if due, requests randomness and
// moves the round to the calculating state.
func (s *RaffleService) CloseRound(ctx context.Context, now int64) (models.RequestID, error) {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.upkeepNeededLocked(now) {
		return 0, fmt.Errorf("%w: balance=%s players=%d state=%s",
			ErrUpkeepNotNeeded, s.ledger.balance.Dec(), s.ledger.Count(), s.state)
	}

	id, err := s.broker.RequestRandomness(ctx, s.roundToken, now)
	if err != nil {
		logger.Errorf("round %d: randomness request failed: %v", s.round, err)
		return 0, err
	}
	s.state = models.StateCalculating

	s.emit(models.Event{
		Kind:      models.EventRoundClosing,
		Round:     s.round,
		RequestID: id,
	})
	return id, nil
}

// FulfillRandomWords is the oracle callback. The first word decides the
// winner.
func (s *RaffleService) FulfillRandomWords(ctx context.Context, id models.RequestID, words []*uint256.Int) error {
	_, err := s.ResolveWords(ctx, id, words)
	return err
}

// ResolveWords is FulfillRandomWords returning the resolved round.
func (s *RaffleService) ResolveWords(ctx context.Context, id models.RequestID, words []*uint256.Int) (models.WinnerRecord, error) {
	if len(words) == 0 || words[0] == nil {
		return models.WinnerRecord{}, ErrNoRandomWords
	}
	return s.Resolve(ctx, id, words[0])
}

// Resolve picks the winner of the pending round with randomValue, pays out
// the whole pool and opens the next round. If the payout fails nothing
// changes and the same id may be resolved again.
func (s *RaffleService) Resolve(ctx context.Context, id models.RequestID, randomValue *uint256.Int) (models.WinnerRecord, error) {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.StateCalculating {
		return models.WinnerRecord{}, fmt.Errorf("%w: id %d, state is %s", ErrUnknownRequest, id, s.state)
	}

	var record *models.WinnerRecord
	err := s.broker.OnFulfilled(id, randomValue, func(roundToken uuid.UUID, v *uint256.Int) error {
		rec, err := s.pickWinnerLocked(ctx, id, roundToken, v)
		record = rec
		return err
	})
	if err != nil {
		return models.WinnerRecord{}, err
	}
	return *record, nil
}

// pickWinnerLocked settles the round the request with roundToken was issued
// for.
func (s *RaffleService) pickWinnerLocked(ctx context.Context, id models.RequestID, roundToken uuid.UUID, randomValue *uint256.Int) (*models.WinnerRecord, error) {
	count := s.ledger.Count()
	if count == 0 {
		return nil, fmt.Errorf("%w: round %d has no players", ErrIndexOutOfRange, s.round)
	}

	idx := new(uint256.Int).Mod(randomValue, uint256.NewInt(uint64(count))).Uint64()
	winner, err := s.ledger.EntryAt(int(idx))
	if err != nil {
		return nil, err
	}
	amount := s.ledger.Balance()

	if err := s.sink.Transfer(ctx, winner, amount); err != nil {
		logger.Errorf("round %d: payout of %s to %s failed: %v", s.round, amount.Dec(), winner.Hex(), err)
		return nil, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	now := s.clock.Now()
	record := &models.WinnerRecord{
		Round:      s.round,
		RoundToken: roundToken,
		RequestID:  id,
		RandomWord: new(uint256.Int).Set(randomValue),
		Winner:     winner,
		WinnerIdx:  int(idx),
		Payout:     amount,
		Entries:    count,
		OpenedAt:   s.openedAt,
		ResolvedAt: now,
	}

	s.ledger.Reset()
	s.recentWinner = record
	s.state = models.StateOpen
	s.openedAt = now
	s.round++
	s.roundToken = uuid.New()

	stored := *record
	s.emit(models.Event{
		Kind:          models.EventWinnerPicked,
		Round:         record.Round,
		Winner:        &stored,
		NewRoundStart: now,
	})
	return record, nil
}

// emit queues ev for delivery once the raffle lock is released. Callers hold
// mu.
func (s *RaffleService) emit(ev models.Event) {
	s.outbox = append(s.outbox, ev)
}

// flush delivers queued events outside mu. It must run after mu is released.
func (s *RaffleService) flush(ctx context.Context) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	events := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, ev := range events {
		s.observer.Notify(ctx, ev)
	}
}

// EntranceFee returns the fee charged per entry.
func (s *RaffleService) EntranceFee() *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.EntranceFee()
}

// Interval returns the minimum round length in seconds.
func (s *RaffleService) Interval() int64 {
	return s.interval
}

func (s *RaffleService) State() models.RaffleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Player returns the participant holding entry index in the current round.
func (s *RaffleService) Player(index int) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.EntryAt(index)
}

func (s *RaffleService) NumberOfPlayers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Count()
}

// Balance returns the pool of the current round.
func (s *RaffleService) Balance() *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Balance()
}

// LastTimestamp returns when the current round opened.
func (s *RaffleService) LastTimestamp() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openedAt
}

// RecentWinner returns the last resolved round, or nil before the first.
func (s *RaffleService) RecentWinner() *models.WinnerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.recentWinner == nil {
		return nil
	}
	w := *s.recentWinner
	return &w
}

// PendingRequest reports the outstanding randomness request and when it was
// issued.
func (s *RaffleService) PendingRequest() (models.RequestID, int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broker.Pending()
}

// Snapshot reads the whole raffle under one lock.
func (s *RaffleService) Snapshot() models.RaffleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.RaffleSnapshot{
		State:       s.state,
		Round:       s.round,
		RoundToken:  s.roundToken,
		EntranceFee: s.ledger.EntranceFee(),
		Interval:    s.interval,
		OpenedAt:    s.openedAt,
		Players:     s.ledger.Count(),
		Balance:     s.ledger.Balance(),
	}
	if id, since, ok := s.broker.Pending(); ok {
		snap.PendingRequest = id
		snap.PendingSince = since
	}
	if s.recentWinner != nil {
		w := *s.recentWinner
		snap.RecentWinner = &w
	}
	return snap
}
