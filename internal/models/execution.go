package models

// ExecutionStatus captures the workflow-orchestrator states this system
// distinguishes; every other upstream status maps to ExecutionOther.
type ExecutionStatus string

const (
	ExecutionPending    ExecutionStatus = "Pending"
	ExecutionInProgress ExecutionStatus = "InProgress"
	ExecutionWaiting    ExecutionStatus = "Waiting"
	ExecutionOther      ExecutionStatus = "Other"
)

// LiveExecutionStatuses are the states that mark an execution as in flight.
func LiveExecutionStatuses() []ExecutionStatus {
	return []ExecutionStatus{ExecutionPending, ExecutionInProgress, ExecutionWaiting}
}

// AutomationExecution is the read model of one workflow run owned by the
// external orchestrator. CurrentStepName is meaningful only when Waiting.
type AutomationExecution struct {
	ID              string
	Status          ExecutionStatus
	DocumentName    string
	Parameters      map[string][]string
	CurrentStepName string
}

// ReferencesPlatform reports whether any parameter value names the platform.
func (e AutomationExecution) ReferencesPlatform(platform string) bool {
	if platform == "" {
		return false
	}
	for _, values := range e.Parameters {
		for _, value := range values {
			if value == platform {
				return true
			}
		}
	}
	return false
}

// InstanceState is a compute-layer instance lifecycle state.
type InstanceState string

const (
	InstancePending  InstanceState = "pending"
	InstanceRunning  InstanceState = "running"
	InstanceStopping InstanceState = "stopping"
	InstanceStopped  InstanceState = "stopped"
)

// ReclaimableInstanceStates are the lifecycle states in which an orphaned
// worker may still hold resources and is eligible for termination.
func ReclaimableInstanceStates() []InstanceState {
	return []InstanceState{InstancePending, InstanceRunning, InstanceStopping, InstanceStopped}
}

// WorkerInstance is the read model of a build worker owned by the compute
// layer.
type WorkerInstance struct {
	ID    string
	State InstanceState
	Tags  map[string]string
}
