// Package notify pushes operational alerts (failed captures, sweep errors)
// to a Telegram chat. It is optional plumbing: the engine never depends on a
// notification being delivered.
package notify

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"aircheck/internal/eventbus"
	"aircheck/internal/retention"
	"aircheck/internal/scheduler"
	logx "aircheck/pkg/logx"
)

type Config struct {
	Enabled    bool
	Token      string
	ChatID     int64
	RatePerSec int
}

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	bus eventbus.Bus
	bot *tele.Bot

	limiter *rate.Limiter

	unsub    func()
	stopDone chan struct{}
}

func New(cfg Config, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Service{
		cfg:     cfg,
		bus:     bus,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.bus == nil || s.unsub != nil {
		return
	}

	// Send-only bot: no poller, no handlers.
	bot, err := tele.NewBot(tele.Settings{Token: s.cfg.Token})
	if err != nil {
		s.log.Warn("notify disabled: telegram init failed", logx.Err(err))
		return
	}
	s.bot = bot

	ch, unsub := s.bus.Subscribe(64)
	s.unsub = unsub
	done := make(chan struct{})
	s.stopDone = done

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				s.handle(ev)
			}
		}
	}()
	s.log.Info("notify started", logx.Int64("chat", s.cfg.ChatID))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	unsub := s.unsub
	done := s.stopDone
	s.unsub = nil
	s.stopDone = nil
	s.mu.Unlock()
	if unsub == nil {
		return
	}
	unsub()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
}

func (s *Service) handle(ev eventbus.Event) {
	var text string
	switch ev.Type {
	case eventbus.TypeCaptureFailed:
		r, ok := ev.Data.(scheduler.RunEvent)
		if !ok {
			return
		}
		text = fmt.Sprintf("⚠️ capture failed: %s (%s)\n%s", r.Show, r.Station, r.Error)
	case eventbus.TypeSweepError:
		sw, ok := ev.Data.(retention.SweepEvent)
		if !ok {
			return
		}
		text = fmt.Sprintf("⚠️ retention sweep error: %s", sw.Error)
	default:
		return
	}

	// Alerts are best-effort; when the limiter says no, drop rather than queue.
	if !s.limiter.Allow() {
		s.log.Debug("notify rate-limited; dropping alert")
		return
	}

	s.mu.Lock()
	bot := s.bot
	chatID := s.cfg.ChatID
	s.mu.Unlock()
	if bot == nil {
		return
	}
	if _, err := bot.Send(&tele.Chat{ID: chatID}, text, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
		s.log.Warn("notify send failed", logx.Err(err))
	}
}
