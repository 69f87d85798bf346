package models

// AgentType identifies the role an agent plays when executing a subtask.
// The set is closed: planners emit only these roles and the scheduler
// rejects anything else.
type AgentType string

const (
	// AgentPlanner decomposes instructions into subtask graphs.
	AgentPlanner AgentType = "planner"
	// AgentExecutor performs concrete actions.
	AgentExecutor AgentType = "executor"
	// AgentVerifier checks whether a subtask's outcome matches its goal.
	AgentVerifier AgentType = "verifier"
	// AgentCritic reviews plans and intermediate results for flaws.
	AgentCritic AgentType = "critic"
	// AgentRecovery diagnoses failures and gathers corrective observations.
	AgentRecovery AgentType = "recovery"
	// AgentCoordinator synthesizes subtask outcomes into a final summary.
	AgentCoordinator AgentType = "coordinator"
	// AgentSpecialist handles domain-specific steps the executor cannot.
	AgentSpecialist AgentType = "specialist"
)

// Valid returns true if the agent type is a known value.
func (a AgentType) Valid() bool {
	switch a {
	case AgentPlanner, AgentExecutor, AgentVerifier, AgentCritic,
		AgentRecovery, AgentCoordinator, AgentSpecialist:
		return true
	default:
		return false
	}
}

// AllAgentTypes lists every valid agent type.
func AllAgentTypes() []AgentType {
	return []AgentType{
		AgentPlanner, AgentExecutor, AgentVerifier, AgentCritic,
		AgentRecovery, AgentCoordinator, AgentSpecialist,
	}
}
