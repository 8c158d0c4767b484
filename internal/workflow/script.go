package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fleet_console/internal/domain"
)

var ErrInvalidScript = errors.New("invalid workflow script")

// DefaultScript is the delivery-management run shown when no script file is
// configured.
func DefaultScript() domain.Script {
	return domain.Script{
		Name: "delivery-day",
		Agents: []domain.Agent{
			{
				ID: "PlannerAgent", Name: "Planner Agent", Role: "Assigns deliveries and schedules",
				Icon: "P", Color: "blue",
				Responsibilities: []string{"Route planning", "Delivery scheduling", "Resource allocation"},
			},
			{
				ID: "CXAgent", Name: "CX Agent", Role: "Talks to customer and handles feedback",
				Icon: "C", Color: "green",
				Responsibilities: []string{"Customer communication", "Feedback handling", "Issue resolution"},
			},
			{
				ID: "RouteOptimizer", Name: "Route Optimizer", Role: "Replans based on conditions",
				Icon: "R", Color: "purple",
				Responsibilities: []string{"Real-time optimization", "Traffic analysis", "Route adjustments"},
			},
			{
				ID: "DriverSupport", Name: "Driver Support", Role: "Answers driver queries",
				Icon: "D", Color: "orange",
				Responsibilities: []string{"Driver assistance", "Query resolution", "Support coordination"},
			},
			{
				ID: "ESGAgent", Name: "ESG Agent", Role: "Minimizes emissions",
				Icon: "E", Color: "lime",
				Responsibilities: []string{"Emission tracking", "Eco-friendly routing", "Sustainability metrics"},
			},
			{
				ID: "IncidentHandler", Name: "Incident Handler", Role: "Responds to disruptions",
				Icon: "!", Color: "red",
				Responsibilities: []string{"Emergency response", "Disruption management", "Crisis coordination"},
			},
		},
		Stages: []domain.Stage{
			{ID: "initial", Name: "Initial Planning", Agent: "PlannerAgent",
				Message:    "Creating delivery schedule for 50 packages across 5 zones",
				NextStages: []string{"esg_check", "route_optimization"}},
			{ID: "esg_check", Name: "ESG Analysis", Agent: "ESGAgent",
				Message:    "Analyzing routes for carbon footprint. Recommending electric vehicles for Zone A.",
				NextStages: []string{"route_optimization"}},
			{ID: "route_optimization", Name: "Route Optimization", Agent: "RouteOptimizer",
				Message:    "Optimizing routes with traffic data. Estimated 15% time reduction achieved.",
				NextStages: []string{"customer_notification"}},
			{ID: "customer_notification", Name: "Customer Notification", Agent: "CXAgent",
				Message:    "Sending delivery notifications to customers. ETA: 2-4 PM window.",
				NextStages: []string{"driver_briefing"}},
			{ID: "driver_briefing", Name: "Driver Briefing", Agent: "DriverSupport",
				Message:    "Briefing drivers on optimized routes and special delivery instructions.",
				NextStages: []string{"incident_monitoring"}},
			{ID: "incident_monitoring", Name: "Active Monitoring", Agent: "IncidentHandler",
				Message:    "Monitoring deliveries. Alert: Traffic jam on Route 3 detected.",
				NextStages: []string{"route_reoptimization"}},
			{ID: "route_reoptimization", Name: "Route Re-optimization", Agent: "RouteOptimizer",
				Message:    "Rerouting affected deliveries. Alternative route calculated.",
				NextStages: []string{"customer_update"}},
			{ID: "customer_update", Name: "Customer Update", Agent: "CXAgent",
				Message:    "Updating customers about delay. New ETA: 2:30-4:30 PM.",
				NextStages: []string{"driver_update"}},
			{ID: "driver_update", Name: "Driver Update", Agent: "DriverSupport",
				Message:    "Sending new route to Driver #3. Navigation updated in real-time.",
				NextStages: []string{"completion"}},
			{ID: "completion", Name: "Workflow Complete", Agent: "PlannerAgent",
				Message: "All deliveries completed successfully. Performance metrics logged."},
		},
		Exchanges: []domain.MessageExchange{
			{From: "PlannerAgent", To: "ESGAgent", Text: "Please analyze route sustainability"},
			{From: "ESGAgent", To: "PlannerAgent", Text: "Route optimized for 20% less emissions"},
			{From: "PlannerAgent", To: "RouteOptimizer", Text: "Optimize these 5 delivery routes"},
			{From: "RouteOptimizer", To: "CXAgent", Text: "Routes ready, ETAs calculated"},
			{From: "CXAgent", To: "DriverSupport", Text: "Customer preferences noted"},
			{From: "IncidentHandler", To: "RouteOptimizer", Text: "Traffic incident on Route 3"},
			{From: "RouteOptimizer", To: "DriverSupport", Text: "Alternative route provided"},
			{From: "DriverSupport", To: "CXAgent", Text: "Driver needs customer contact info"},
		},
	}
}

func LoadScript(path string) (domain.Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Script{}, fmt.Errorf("read script %s: %w", path, err)
	}
	return ParseScript(raw)
}

func ParseScript(raw []byte) (domain.Script, error) {
	var script domain.Script
	if err := yaml.Unmarshal(raw, &script); err != nil {
		return domain.Script{}, fmt.Errorf("decode script: %w", err)
	}
	if err := ValidateScript(script); err != nil {
		return domain.Script{}, err
	}
	return script, nil
}

func MarshalScript(script domain.Script) ([]byte, error) {
	out, err := yaml.Marshal(script)
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return out, nil
}

// ValidateScript checks references between agents, stages and exchanges.
// Advancement is strictly linear, so a stage that declares successors must
// list the stage that follows it; successors are never used to branch.
func ValidateScript(script domain.Script) error {
	var problems []string

	agents := make(map[string]bool, len(script.Agents))
	for _, a := range script.Agents {
		if strings.TrimSpace(a.ID) == "" {
			problems = append(problems, "agent with empty id")
			continue
		}
		if agents[a.ID] {
			problems = append(problems, fmt.Sprintf("duplicate agent %q", a.ID))
		}
		agents[a.ID] = true
	}

	stages := make(map[string]bool, len(script.Stages))
	for i, st := range script.Stages {
		if strings.TrimSpace(st.ID) == "" {
			problems = append(problems, fmt.Sprintf("stage %d has empty id", i))
			continue
		}
		if stages[st.ID] {
			problems = append(problems, fmt.Sprintf("duplicate stage %q", st.ID))
		}
		stages[st.ID] = true
		if !agents[st.Agent] {
			problems = append(problems, fmt.Sprintf("stage %q references unknown agent %q", st.ID, st.Agent))
		}
	}

	for i, st := range script.Stages {
		for _, next := range st.NextStages {
			if !stages[next] {
				problems = append(problems, fmt.Sprintf("stage %q declares unknown successor %q", st.ID, next))
			}
		}
		if i == len(script.Stages)-1 || len(st.NextStages) == 0 {
			continue
		}
		follower := script.Stages[i+1].ID
		if !contains(st.NextStages, follower) {
			problems = append(problems, fmt.Sprintf(
				"stage %q is followed by %q but declares successors %v", st.ID, follower, st.NextStages,
			))
		}
	}

	for i, ex := range script.Exchanges {
		if !agents[ex.From] {
			problems = append(problems, fmt.Sprintf("exchange %d from unknown agent %q", i, ex.From))
		}
		if !agents[ex.To] {
			problems = append(problems, fmt.Sprintf("exchange %d to unknown agent %q", i, ex.To))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(problems, "; "))
}

func contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
