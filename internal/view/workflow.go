package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"fleet_console/internal/domain"
)

// StageState is how a stage appears in the timeline. Completed wins over
// current.
type StageState string

const (
	StagePending   StageState = "pending"
	StageCurrent   StageState = "current"
	StageCompleted StageState = "completed"
)

func StateOf(snap domain.PlayerSnapshot, index int) StageState {
	switch {
	case snap.IsCompleted(index):
		return StageCompleted
	case index == snap.Cursor:
		return StageCurrent
	default:
		return StagePending
	}
}

// ActiveAgent is the agent owning the current stage, or "" for an empty script.
func ActiveAgent(snap domain.PlayerSnapshot) string {
	if snap.CurrentStage == nil {
		return ""
	}
	return snap.CurrentStage.Agent
}

func AgentNetwork(script domain.Script, snap domain.PlayerSnapshot) string {
	if len(script.Agents) == 0 {
		return "No agents"
	}
	active := ActiveAgent(snap)
	var b strings.Builder
	for _, a := range script.Agents {
		marker := "  "
		name := a.Name
		if a.ID == active {
			marker = "[green]●[-] "
			name = "[::b]" + a.Name + "[::-]"
		}
		fmt.Fprintf(&b, "%s[%s]%s[-] %s\n", marker, agentColor(a), iconOf(a), name)
		fmt.Fprintf(&b, "     [gray]%s[-]\n", a.Role)
	}
	return b.String()
}

func StageTimeline(script domain.Script, snap domain.PlayerSnapshot) string {
	if len(script.Stages) == 0 {
		return "No stages"
	}
	var b strings.Builder
	for i, st := range script.Stages {
		agent, _ := script.Agent(st.Agent)
		agentName := agent.Name
		if agentName == "" {
			agentName = st.Agent
		}
		switch StateOf(snap, i) {
		case StageCompleted:
			fmt.Fprintf(&b, "[green]✓ %s[-]  [gray]%s[-]\n", st.Name, agentName)
		case StageCurrent:
			fmt.Fprintf(&b, "[%s]▶ [::b]%s[::-][-]  %s\n", agentColor(agent), st.Name, agentName)
			fmt.Fprintf(&b, "    %s\n", st.Message)
		default:
			fmt.Fprintf(&b, "[gray]· %s  %s[-]\n", st.Name, agentName)
		}
		if i < len(script.Stages)-1 {
			connector := "[gray]│[-]"
			if snap.IsCompleted(i) {
				connector = "[green]│[-]"
			}
			b.WriteString(connector + "\n")
		}
	}
	return b.String()
}

func CommunicationLog(script domain.Script, snap domain.PlayerSnapshot) string {
	if len(snap.RevealedMessages) == 0 {
		return "[gray]No messages yet[-]"
	}
	var b strings.Builder
	for _, m := range snap.RevealedMessages {
		from, _ := script.Agent(m.From)
		to, _ := script.Agent(m.To)
		fmt.Fprintf(&b, "[%s]%s[-] → [%s]%s[-]\n  %s\n",
			agentColor(from), displayName(from, m.From),
			agentColor(to), displayName(to, m.To),
			m.Text,
		)
	}
	return b.String()
}

func PlayerStatus(snap domain.PlayerSnapshot) string {
	state := "[yellow]paused[-]"
	switch {
	case snap.StageCount == 0:
		state = "[gray]empty[-]"
	case snap.Running:
		state = "[green]running[-]"
	case snap.Terminal:
		state = "[blue]finished[-]"
	case snap.Cursor == 0 && len(snap.Completed) == 0:
		state = "[gray]idle[-]"
	}
	stage := "-"
	if snap.CurrentStage != nil {
		stage = snap.CurrentStage.Name
	}
	return fmt.Sprintf("%s  stage %d/%d %s  messages %d  run %s",
		state, min(snap.Cursor+1, snap.StageCount), snap.StageCount, stage, snap.Revealed, ShortID(snap.RunID))
}

func RunsText(runs []domain.RunSummary, now time.Time) string {
	if len(runs) == 0 {
		return "No recorded runs"
	}
	var b strings.Builder
	for _, r := range runs {
		status := "open"
		if r.Completed {
			status = "[green]completed[-]"
		}
		fmt.Fprintf(&b, "%s  events=%d  max stage=%d  %s  updated %s\n",
			ShortID(r.RunID), r.Events, r.MaxCursor, status,
			humanize.RelTime(r.UpdatedAt, now, "ago", "from now"))
	}
	return b.String()
}

func ShortID(v string) string {
	if len(v) <= 8 {
		return v
	}
	return v[:8]
}

func agentColor(a domain.Agent) string {
	if a.Color == "" {
		return "white"
	}
	return a.Color
}

func iconOf(a domain.Agent) string {
	if a.Icon != "" {
		return a.Icon
	}
	if a.Name != "" {
		return a.Name[:1]
	}
	return "?"
}

func displayName(a domain.Agent, fallback string) string {
	if a.Name != "" {
		return a.Name
	}
	return fallback
}
