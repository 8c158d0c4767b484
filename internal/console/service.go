package console

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fleet_console/internal/domain"
	"fleet_console/internal/metrics"
	"fleet_console/internal/workflow"
)

const journalSubscriber = "journal"

var ErrJournalDisabled = errors.New("journal is disabled")

type Journal interface {
	Append(ctx context.Context, ev domain.PlayerEvent) error
	ListRun(ctx context.Context, runID string, limit int) ([]domain.JournalEntry, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

type Bus interface {
	Register(subscriberID string) <-chan domain.PlayerEvent
	Unregister(subscriberID string)
	Publish(ev domain.PlayerEvent) error
}

type Config struct {
	Interval     time.Duration
	Seed         int64
	Sizes        metrics.Sizes
	JournalLimit int
	Now          func() time.Time
	NewTicker    workflow.TickerFunc
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = workflow.DefaultInterval
	}
	if c.JournalLimit <= 0 {
		c.JournalLimit = 200
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// Service owns both dashboard components: the dataset generated once at
// construction and the workflow player. They share nothing but the process.
type Service struct {
	cfg     Config
	dataset domain.Dataset
	player  *workflow.Player
	bus     Bus
	journal Journal
	logger  zerolog.Logger

	wg sync.WaitGroup
}

// New generates the dataset and builds an idle player. journal may be nil.
func New(script domain.Script, journal Journal, bus Bus, cfg Config, logger zerolog.Logger) *Service {
	cfg = cfg.withDefaults()
	dataset := metrics.Generate(metrics.NewRand(cfg.Seed), cfg.Sizes, cfg.Now())
	player := workflow.New(script, workflow.Config{
		Interval:  cfg.Interval,
		NewTicker: cfg.NewTicker,
		Now:       cfg.Now,
	}, bus, logger)

	logger.Info().
		Int("orders", len(dataset.Orders)).
		Int("routes", len(dataset.Routes)).
		Int("tracked", len(dataset.Tracking)).
		Int("stages", len(script.Stages)).
		Dur("interval", cfg.Interval).
		Msg("console initialised")

	return &Service{
		cfg:     cfg,
		dataset: dataset,
		player:  player,
		bus:     bus,
		journal: journal,
		logger:  logger.With().Str("component", "console").Logger(),
	}
}

// Start launches the journal recorder. It returns immediately.
func (s *Service) Start(ctx context.Context) {
	if s.journal == nil {
		return
	}
	events := s.bus.Register(journalSubscriber)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.recordLoop(ctx, events)
	}()
}

// Close stops the player and the recorder and waits for both.
func (s *Service) Close() {
	s.player.Close()
	if s.journal != nil {
		s.bus.Unregister(journalSubscriber)
	}
	s.wg.Wait()
}

func (s *Service) recordLoop(ctx context.Context, events <-chan domain.PlayerEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.journal.Append(ctx, ev); err != nil {
				s.logger.Error().Err(err).Str("run_id", ev.RunID).Str("kind", string(ev.Kind)).Msg("journal append failed")
			}
		}
	}
}

func (s *Service) Dataset() domain.Dataset {
	return s.dataset
}

func (s *Service) Script() domain.Script {
	return s.player.Script()
}

func (s *Service) Agents() []domain.Agent {
	return s.player.Script().Agents
}

func (s *Service) Stages() []domain.Stage {
	return s.player.Script().Stages
}

func (s *Service) Snapshot() domain.PlayerSnapshot {
	return s.player.Snapshot()
}

func (s *Service) StartWorkflow() domain.PlayerSnapshot {
	s.player.Start()
	return s.player.Snapshot()
}

func (s *Service) PauseWorkflow() domain.PlayerSnapshot {
	s.player.Pause()
	return s.player.Snapshot()
}

// AdvanceWorkflow steps one stage by hand, exactly as a tick would.
func (s *Service) AdvanceWorkflow() domain.PlayerSnapshot {
	s.player.Advance()
	return s.player.Snapshot()
}

func (s *Service) ResetWorkflow() domain.PlayerSnapshot {
	s.player.Reset()
	return s.player.Snapshot()
}

// Journal lists entries of runID, or of the current run when runID is empty.
func (s *Service) Journal(ctx context.Context, runID string, limit int) ([]domain.JournalEntry, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	if strings.TrimSpace(runID) == "" {
		runID = s.player.Snapshot().RunID
	}
	if limit <= 0 || limit > s.cfg.JournalLimit {
		limit = s.cfg.JournalLimit
	}
	return s.journal.ListRun(ctx, runID, limit)
}

func (s *Service) Runs(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.ListRuns(ctx, limit)
}

func (s *Service) Subscribe(subscriberID string) <-chan domain.PlayerEvent {
	return s.bus.Register(subscriberID)
}

func (s *Service) Unsubscribe(subscriberID string) {
	s.bus.Unregister(subscriberID)
}
