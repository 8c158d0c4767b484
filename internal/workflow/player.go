package workflow

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fleet_console/internal/domain"
)

const DefaultInterval = 3 * time.Second

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFunc func(d time.Duration) Ticker

// Publisher receives every player transition. Publish is called with the
// player lock held and must not block.
type Publisher interface {
	Publish(ev domain.PlayerEvent) error
}

type Config struct {
	Interval  time.Duration
	NewTicker TickerFunc
	Now       func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.NewTicker == nil {
		c.NewTicker = newTimeTicker
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// Player walks a fixed stage list one position per tick. Stage successors in
// the script are metadata only; the cursor always moves to the next index.
type Player struct {
	script domain.Script
	cfg    Config
	pub    Publisher
	logger zerolog.Logger

	mu        sync.Mutex
	runID     string
	cursor    int
	completed map[int]bool
	running   bool
	gen       uint64
	stop      chan struct{}

	wg sync.WaitGroup
}

func New(script domain.Script, cfg Config, pub Publisher, logger zerolog.Logger) *Player {
	return &Player{
		script:    script,
		cfg:       cfg.withDefaults(),
		pub:       pub,
		logger:    logger.With().Str("component", "player").Logger(),
		runID:     uuid.NewString(),
		completed: make(map[int]bool),
	}
}

func (p *Player) Script() domain.Script {
	return p.script
}

func (p *Player) Interval() time.Duration {
	return p.cfg.Interval
}

// Start begins ticking. It does nothing when already running or when the
// cursor sits on the last stage.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.atTerminalLocked() {
		return
	}
	p.running = true
	p.gen++
	stop := make(chan struct{})
	p.stop = stop
	ticker := p.cfg.NewTicker(p.cfg.Interval)

	p.wg.Add(1)
	go p.loop(p.gen, stop, ticker)

	p.publishLocked(domain.PlayerEventStarted, nil)
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	p.stopLoopLocked()
	p.publishLocked(domain.PlayerEventPaused, nil)
}

// Reset returns the player to its initial state. A reset of an untouched
// player is a no-op and keeps the run id.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLoopLocked()
	if !p.running && p.cursor == 0 && len(p.completed) == 0 {
		return
	}
	p.running = false
	p.cursor = 0
	p.completed = make(map[int]bool)
	p.runID = uuid.NewString()
	p.publishLocked(domain.PlayerEventReset, nil)
}

// Advance performs one tick by hand.
func (p *Player) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked()
}

func (p *Player) Snapshot() domain.PlayerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	completed := make([]int, 0, len(p.completed))
	for idx := range p.completed {
		completed = append(completed, idx)
	}
	sort.Ints(completed)

	revealed := p.revealedLocked()
	messages := make([]domain.MessageExchange, revealed)
	copy(messages, p.script.Exchanges[:revealed])

	snap := domain.PlayerSnapshot{
		RunID:            p.runID,
		Cursor:           p.cursor,
		Completed:        completed,
		Running:          p.running,
		Terminal:         p.atTerminalLocked(),
		Revealed:         revealed,
		RevealedMessages: messages,
		StageCount:       len(p.script.Stages),
		IntervalMS:       p.cfg.Interval.Milliseconds(),
	}
	if p.cursor < len(p.script.Stages) {
		stage := p.script.Stages[p.cursor]
		snap.CurrentStage = &stage
	}
	return snap
}

// Close stops the ticker goroutine and waits for it to exit.
func (p *Player) Close() {
	p.mu.Lock()
	p.running = false
	p.stopLoopLocked()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Player) loop(gen uint64, stop <-chan struct{}, ticker Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if !p.tick(gen) {
				return
			}
		}
	}
}

func (p *Player) tick(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	// stale tick from a ticker that was paused or reset
	if gen != p.gen || !p.running {
		return false
	}
	p.advanceLocked()
	return p.running
}

func (p *Player) advanceLocked() {
	last := len(p.script.Stages) - 1
	if last < 0 {
		return
	}
	if p.cursor >= last {
		p.running = false
		p.stopLoopLocked()
		return
	}

	before := p.revealedLocked()
	p.completed[p.cursor] = true
	p.cursor++

	var msg *domain.MessageExchange
	if after := p.revealedLocked(); after > before {
		ex := p.script.Exchanges[after-1]
		msg = &ex
	}
	p.publishLocked(domain.PlayerEventAdvanced, msg)

	if p.cursor == last {
		p.running = false
		p.stopLoopLocked()
		p.publishLocked(domain.PlayerEventCompleted, nil)
	}
}

// revealedLocked derives the message count from the cursor so the two can
// never drift apart.
func (p *Player) revealedLocked() int {
	return min(p.cursor, len(p.script.Exchanges))
}

func (p *Player) atTerminalLocked() bool {
	return len(p.script.Stages) == 0 || p.cursor >= len(p.script.Stages)-1
}

func (p *Player) stopLoopLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.gen++
}

func (p *Player) publishLocked(kind domain.PlayerEventKind, msg *domain.MessageExchange) {
	ev := domain.PlayerEvent{
		Kind:    kind,
		RunID:   p.runID,
		Cursor:  p.cursor,
		Message: msg,
		At:      p.cfg.Now(),
	}
	if p.cursor < len(p.script.Stages) {
		ev.StageID = p.script.Stages[p.cursor].ID
		ev.Agent = p.script.Stages[p.cursor].Agent
	}

	p.logger.Debug().
		Str("run_id", ev.RunID).
		Str("kind", string(kind)).
		Int("cursor", ev.Cursor).
		Str("stage", ev.StageID).
		Msg("player transition")

	if p.pub == nil {
		return
	}
	if err := p.pub.Publish(ev); err != nil {
		p.logger.Warn().Err(err).Str("kind", string(kind)).Msg("publish player event")
	}
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }
