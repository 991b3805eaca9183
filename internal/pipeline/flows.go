package pipeline

import "fmt"

// --- Flow enum ---

// Flow names one of the coaching entry points.
type Flow string

const (
	FlowPropose Flow = "propose"
	FlowRevise  Flow = "revise"
	FlowChat    Flow = "chat"
)

// validFlows is the set of recognized flows.
var validFlows = map[Flow]bool{
	FlowPropose: true,
	FlowRevise:  true,
	FlowChat:    true,
}

// ValidateFlow returns an error if the flow is not recognized.
func ValidateFlow(f Flow) error {
	if !validFlows[f] {
		return fmt.Errorf("invalid flow %q: must be one of: propose, revise, chat", f)
	}
	return nil
}

// FlowRegistry defines the stage sequence for each flow. Propose pays
// for a fresh analysis; revise trusts the findings already baked into
// the plan being revised; chat plans only, and the orchestrator
// appends a curating stage when the conversation proposes a plan.
var FlowRegistry = map[Flow][]State{
	FlowPropose: {StateAnalyzing, StatePlanning, StateCurating},
	FlowRevise:  {StatePlanning, StateCurating},
	FlowChat:    {StatePlanning},
}

// StageFlow returns the ordered stage list for the given flow.
func StageFlow(f Flow) ([]State, error) {
	if err := ValidateFlow(f); err != nil {
		return nil, err
	}
	flow, ok := FlowRegistry[f]
	if !ok {
		return nil, fmt.Errorf("no flow defined for %q", f)
	}

	// Return a copy to prevent mutation of the registry.
	result := make([]State, len(flow))
	copy(result, flow)
	return result, nil
}
