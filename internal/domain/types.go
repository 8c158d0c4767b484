package domain

import (
	"encoding/json"
	"time"
)

type Agent struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Role             string   `json:"role" yaml:"role"`
	Icon             string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color            string   `json:"color,omitempty" yaml:"color,omitempty"`
	Responsibilities []string `json:"responsibilities" yaml:"responsibilities"`
}

type Stage struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Agent      string   `json:"agent" yaml:"agent"`
	Message    string   `json:"message" yaml:"message"`
	NextStages []string `json:"next_stages,omitempty" yaml:"next_stages,omitempty"`
}

type MessageExchange struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Text string `json:"text" yaml:"text"`
}

type Script struct {
	Name      string            `json:"name" yaml:"name"`
	Agents    []Agent           `json:"agents" yaml:"agents"`
	Stages    []Stage           `json:"stages" yaml:"stages"`
	Exchanges []MessageExchange `json:"exchanges" yaml:"exchanges"`
}

func (s Script) Agent(id string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

type PlayerSnapshot struct {
	RunID            string            `json:"run_id"`
	Cursor           int               `json:"cursor"`
	Completed        []int             `json:"completed"`
	Running          bool              `json:"running"`
	Terminal         bool              `json:"terminal"`
	Revealed         int               `json:"revealed"`
	RevealedMessages []MessageExchange `json:"revealed_messages"`
	CurrentStage     *Stage            `json:"current_stage,omitempty"`
	StageCount       int               `json:"stage_count"`
	IntervalMS       int64             `json:"interval_ms"`
}

func (s PlayerSnapshot) IsCompleted(index int) bool {
	for _, c := range s.Completed {
		if c == index {
			return true
		}
	}
	return false
}

type PlayerEventKind string

const (
	PlayerEventStarted   PlayerEventKind = "started"
	PlayerEventPaused    PlayerEventKind = "paused"
	PlayerEventReset     PlayerEventKind = "reset"
	PlayerEventAdvanced  PlayerEventKind = "advanced"
	PlayerEventCompleted PlayerEventKind = "completed"
)

type PlayerEvent struct {
	Kind    PlayerEventKind  `json:"kind"`
	RunID   string           `json:"run_id"`
	Cursor  int              `json:"cursor"`
	StageID string           `json:"stage_id,omitempty"`
	Agent   string           `json:"agent,omitempty"`
	Message *MessageExchange `json:"message,omitempty"`
	At      time.Time        `json:"at"`
}

type JournalEntry struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	Kind      PlayerEventKind `json:"kind"`
	Cursor    int             `json:"cursor"`
	StageID   string          `json:"stage_id"`
	Agent     string          `json:"agent"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type RunSummary struct {
	RunID     string    `json:"run_id"`
	Events    int       `json:"events"`
	MaxCursor int       `json:"max_cursor"`
	Completed bool      `json:"completed"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
