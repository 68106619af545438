package services

import (
	"context"

	"raffle/internal/models"

	"github.com/google/logger"
)

// Observer receives raffle notifications in the order they happened. Notify
// runs after the raffle lock is released; it may read the raffle but must
// not call Enter, CloseRound or Resolve.
type Observer interface {
	Notify(ctx context.Context, ev models.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev models.Event)

func (f ObserverFunc) Notify(ctx context.Context, ev models.Event) { f(ctx, ev) }

// LogObserver writes every notification to the process logger.
type LogObserver struct{}

func (LogObserver) Notify(_ context.Context, ev models.Event) {
	switch ev.Kind {
	case models.EventEntryAdmitted:
		logger.Infof("round %d: %s entered, pool=%s", ev.Round, ev.Participant.Hex(), decimal(ev.Balance))
	case models.EventRoundClosing:
		logger.Infof("round %d: closing, randomness request id=%d", ev.Round, ev.RequestID)
	case models.EventWinnerPicked:
		if w := ev.Winner; w != nil {
			logger.Infof("round %d: winner %s (index %d of %d) paid %s, next round opened at %d",
				ev.Round, w.Winner.Hex(), w.WinnerIdx, w.Entries, decimal(w.Payout), ev.NewRoundStart)
		}
	default:
		logger.Warningf("unknown raffle event %q", ev.Kind)
	}
}

type observers []Observer

func (o observers) Notify(ctx context.Context, ev models.Event) {
	for _, obs := range o {
		obs.Notify(ctx, ev)
	}
}
