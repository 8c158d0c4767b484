package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"fleet_console/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (c *manualClock) newTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) latest(t *testing.T) *manualTicker {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		t.Fatalf("no ticker created")
	}
	return c.tickers[len(c.tickers)-1]
}

func (c *manualClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.PlayerEvent
}

func (r *recorder) Publish(ev domain.PlayerEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) kinds() []domain.PlayerEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PlayerEventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func stageScript(ids ...string) domain.Script {
	script := domain.Script{Agents: []domain.Agent{{ID: "a", Name: "A"}}}
	for _, id := range ids {
		script.Stages = append(script.Stages, domain.Stage{ID: id, Name: id, Agent: "a", Message: "msg " + id})
	}
	return script
}

func newTestPlayer(t *testing.T, script domain.Script) (*Player, *manualClock, *recorder) {
	t.Helper()
	clock := &manualClock{}
	rec := &recorder{}
	p := New(script, Config{Interval: time.Millisecond, NewTicker: clock.newTicker}, rec, zerolog.Nop())
	t.Cleanup(p.Close)
	return p, clock, rec
}

// fire delivers one tick and waits until the player has consumed it.
func fire(t *testing.T, p *Player, tk *manualTicker) domain.PlayerSnapshot {
	t.Helper()
	before := p.Snapshot()
	tk.ch <- time.Now()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := p.Snapshot()
		if snap.Cursor != before.Cursor || snap.Running != before.Running {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("tick was not consumed (cursor=%d running=%t)", before.Cursor, before.Running)
	return domain.PlayerSnapshot{}
}

func TestThreeStageScenario(t *testing.T) {
	p, clock, _ := newTestPlayer(t, stageScript("A", "B", "C"))

	p.Start()
	if !p.Snapshot().Running {
		t.Fatalf("expected running after start")
	}
	tk := clock.latest(t)

	snap := fire(t, p, tk)
	if snap.Cursor != 1 || !equalInts(snap.Completed, []int{0}) || !snap.Running {
		t.Fatalf("after first tick: %+v", snap)
	}

	snap = fire(t, p, tk)
	if snap.Cursor != 2 || !equalInts(snap.Completed, []int{0, 1}) {
		t.Fatalf("after second tick: %+v", snap)
	}
	if snap.Running || !snap.Terminal {
		t.Fatalf("expected terminal stop, got running=%t terminal=%t", snap.Running, snap.Terminal)
	}
	waitStopped(t, tk)

	p.Reset()
	snap = p.Snapshot()
	if snap.Cursor != 0 || len(snap.Completed) != 0 || snap.Running || snap.Revealed != 0 {
		t.Fatalf("after reset: %+v", snap)
	}
}

func TestRunToTerminalForManyLengths(t *testing.T) {
	for n := 1; n <= 7; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('A' + i))
		}
		p, clock, _ := newTestPlayer(t, stageScript(ids...))
		p.Start()
		if n == 1 {
			if p.Snapshot().Running || clock.count() != 0 {
				t.Fatalf("n=1: start on terminal stage must be a no-op")
			}
			continue
		}
		tk := clock.latest(t)
		var snap domain.PlayerSnapshot
		for i := 0; i < n-1; i++ {
			snap = fire(t, p, tk)
		}
		if snap.Cursor != n-1 || snap.Running {
			t.Fatalf("n=%d: cursor=%d running=%t", n, snap.Cursor, snap.Running)
		}
		want := make([]int, n-1)
		for i := range want {
			want[i] = i
		}
		if !equalInts(snap.Completed, want) {
			t.Fatalf("n=%d: completed=%v want=%v", n, snap.Completed, want)
		}
		p.Close()
	}
}

func TestPauseStopsTicks(t *testing.T) {
	p, clock, rec := newTestPlayer(t, stageScript("A", "B", "C", "D"))

	p.Start()
	tk := clock.latest(t)
	fire(t, p, tk)
	p.Pause()
	p.Pause()
	waitStopped(t, tk)

	// a tick delivered after pause is never consumed
	tk.ch <- time.Now()
	time.Sleep(20 * time.Millisecond)
	snap := p.Snapshot()
	if snap.Cursor != 1 || snap.Running {
		t.Fatalf("paused player moved: %+v", snap)
	}

	p.Start()
	if clock.count() != 2 {
		t.Fatalf("expected a fresh ticker on restart, got %d", clock.count())
	}
	snap = fire(t, p, clock.latest(t))
	if snap.Cursor != 2 {
		t.Fatalf("cursor after resume=%d want=2", snap.Cursor)
	}

	kinds := rec.kinds()
	want := []domain.PlayerEventKind{
		domain.PlayerEventStarted,
		domain.PlayerEventAdvanced,
		domain.PlayerEventPaused,
		domain.PlayerEventStarted,
		domain.PlayerEventAdvanced,
	}
	if len(kinds) != len(want) {
		t.Fatalf("events=%v want=%v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events=%v want=%v", kinds, want)
		}
	}
}

func TestStartAtTerminalIsNoop(t *testing.T) {
	p, clock, _ := newTestPlayer(t, stageScript("A", "B"))
	p.Advance()
	if snap := p.Snapshot(); snap.Cursor != 1 || !snap.Terminal {
		t.Fatalf("expected terminal after one advance: %+v", snap)
	}
	p.Start()
	if p.Snapshot().Running {
		t.Fatalf("start on terminal stage should not run")
	}
	if clock.count() != 0 {
		t.Fatalf("no ticker expected")
	}
}

func TestAdvanceAtTerminalForcesStop(t *testing.T) {
	p, _, _ := newTestPlayer(t, stageScript("A", "B", "C"))
	p.Advance()
	p.Advance()
	before := p.Snapshot()

	p.Advance()
	p.Advance()
	after := p.Snapshot()
	if after.Cursor != before.Cursor || !equalInts(after.Completed, before.Completed) {
		t.Fatalf("advance at terminal changed state: before=%+v after=%+v", before, after)
	}
	if after.Running {
		t.Fatalf("advance at terminal must leave running=false")
	}
}

func TestResetFromAnyState(t *testing.T) {
	script := DefaultScript()
	for steps := 0; steps < len(script.Stages); steps++ {
		p, _, _ := newTestPlayer(t, script)
		p.Start()
		for i := 0; i < steps; i++ {
			p.Advance()
		}
		p.Reset()
		snap := p.Snapshot()
		if snap.Cursor != 0 || len(snap.Completed) != 0 || snap.Running || snap.Revealed != 0 || len(snap.RevealedMessages) != 0 {
			t.Fatalf("steps=%d: reset left %+v", steps, snap)
		}
		p.Close()
	}
}

func TestResetIsIdempotent(t *testing.T) {
	p, _, rec := newTestPlayer(t, stageScript("A", "B", "C"))
	initialRun := p.Snapshot().RunID

	p.Reset()
	if p.Snapshot().RunID != initialRun {
		t.Fatalf("reset of untouched player should keep run id")
	}
	p.Advance()
	p.Reset()
	p.Reset()
	if p.Snapshot().RunID == initialRun {
		t.Fatalf("reset after progress should mint a new run id")
	}
	resets := 0
	for _, k := range rec.kinds() {
		if k == domain.PlayerEventReset {
			resets++
		}
	}
	if resets != 1 {
		t.Fatalf("reset events=%d want=1", resets)
	}
}

func TestRevealedNeverExceedsExchanges(t *testing.T) {
	script := stageScript("A", "B", "C", "D", "E", "F")
	script.Exchanges = []domain.MessageExchange{
		{From: "a", To: "a", Text: "one"},
		{From: "a", To: "a", Text: "two"},
	}
	p, _, rec := newTestPlayer(t, script)

	for i := 0; i < 10; i++ {
		p.Advance()
		snap := p.Snapshot()
		if snap.Revealed > len(script.Exchanges) {
			t.Fatalf("revealed=%d exceeds %d", snap.Revealed, len(script.Exchanges))
		}
		if snap.Revealed != min(snap.Cursor, len(script.Exchanges)) {
			t.Fatalf("revealed=%d cursor=%d", snap.Revealed, snap.Cursor)
		}
	}
	snap := p.Snapshot()
	if snap.RevealedMessages[0].Text != "one" || snap.RevealedMessages[1].Text != "two" {
		t.Fatalf("unexpected reveal order: %+v", snap.RevealedMessages)
	}

	var carrying int
	rec.mu.Lock()
	for _, ev := range rec.events {
		if ev.Message != nil {
			carrying++
		}
	}
	rec.mu.Unlock()
	if carrying != 2 {
		t.Fatalf("events carrying messages=%d want=2", carrying)
	}
}

func TestDefaultScriptRevealsAllExchangesBeforeTerminal(t *testing.T) {
	p, _, _ := newTestPlayer(t, DefaultScript())
	for i := 0; i < 20; i++ {
		p.Advance()
	}
	snap := p.Snapshot()
	if snap.Cursor != 9 || snap.Revealed != 8 {
		t.Fatalf("cursor=%d revealed=%d", snap.Cursor, snap.Revealed)
	}
	if snap.CurrentStage == nil || snap.CurrentStage.ID != "completion" {
		t.Fatalf("current stage=%v", snap.CurrentStage)
	}
}

func TestEmptyScriptIsInert(t *testing.T) {
	p, clock, rec := newTestPlayer(t, domain.Script{})
	p.Start()
	p.Advance()
	p.Pause()
	p.Reset()
	snap := p.Snapshot()
	if snap.Running || snap.Cursor != 0 || snap.CurrentStage != nil || !snap.Terminal {
		t.Fatalf("empty script snapshot: %+v", snap)
	}
	if clock.count() != 0 || len(rec.kinds()) != 0 {
		t.Fatalf("empty script should not tick or publish")
	}
}

func TestRealTickerAdvances(t *testing.T) {
	rec := &recorder{}
	p := New(stageScript("A", "B", "C"), Config{Interval: 5 * time.Millisecond}, rec, zerolog.Nop())
	defer p.Close()

	p.Start()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := p.Snapshot(); snap.Terminal && !snap.Running {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("player did not reach terminal: %+v", p.Snapshot())
}

func waitStopped(t *testing.T, tk *manualTicker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tk.isStopped() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("ticker was not stopped")
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
