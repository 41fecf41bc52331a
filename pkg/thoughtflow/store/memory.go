package store

import (
	"sort"
	"sync"
	"time"

	"github.com/mindfold/thoughtflow/pkg/thoughtflow"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
)

// Memory is an in-memory database holding both flow definitions and
// execution records. It is safe for concurrent use and intended for
// tests and prototyping; contents are lost when the process exits.
type Memory struct {
	mu         sync.RWMutex
	flows      map[string]*thoughtflow.FlowDefinition
	executions []*thoughtflow.FlowExecution
	byExecID   map[string]*thoughtflow.FlowExecution
}

// NewMemory creates an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{
		flows:    make(map[string]*thoughtflow.FlowDefinition),
		byExecID: make(map[string]*thoughtflow.FlowExecution),
	}
}

// Flows returns the flow-definition store backed by this database.
func (m *Memory) Flows() *MemoryFlowStore {
	return &MemoryFlowStore{db: m}
}

// Executions returns the execution store backed by this database.
func (m *Memory) Executions() *MemoryExecutionStore {
	return &MemoryExecutionStore{db: m}
}

func copyFlow(flow *thoughtflow.FlowDefinition) *thoughtflow.FlowDefinition {
	c := *flow
	c.Configuration = config.New(flow.Configuration.Raw())
	return &c
}

func copyExecution(exec *thoughtflow.FlowExecution) *thoughtflow.FlowExecution {
	c := *exec
	if exec.Result != nil {
		c.Result = make(map[string]any, len(exec.Result))
		for k, v := range exec.Result {
			c.Result[k] = v
		}
	}
	if exec.ErrorMessage != nil {
		msg := *exec.ErrorMessage
		c.ErrorMessage = &msg
	}
	return &c
}

// MemoryFlowStore implements thoughtflow.FlowStore in memory.
type MemoryFlowStore struct {
	db *Memory
}

var _ thoughtflow.FlowStore = (*MemoryFlowStore)(nil)

// Save implements thoughtflow.FlowStore.
func (s *MemoryFlowStore) Save(flow *thoughtflow.FlowDefinition) (*thoughtflow.FlowDefinition, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.flows[flow.ID]
	if !ok {
		saved := copyFlow(flow)
		s.db.flows[flow.ID] = saved
		return copyFlow(saved), nil
	}

	if existing.Version != flow.Version {
		return nil, &versionConflictError{id: flow.ID, version: flow.Version}
	}

	updated := copyFlow(existing)
	updated.Name = flow.Name
	updated.Description = flow.Description
	updated.Configuration = config.New(flow.Configuration.Raw())
	updated.Status = flow.Status
	updated.Version = existing.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	s.db.flows[flow.ID] = updated
	return copyFlow(updated), nil
}

// FindByID implements thoughtflow.FlowStore.
func (s *MemoryFlowStore) FindByID(id string) (*thoughtflow.FlowDefinition, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	flow, ok := s.db.flows[id]
	if !ok {
		return nil, &FlowNotFoundError{FlowID: id}
	}
	return copyFlow(flow), nil
}

// FindByOrganization implements thoughtflow.FlowStore.
func (s *MemoryFlowStore) FindByOrganization(orgID string) ([]*thoughtflow.FlowDefinition, error) {
	return s.filter(func(f *thoughtflow.FlowDefinition) bool {
		return f.OrganizationID == orgID
	})
}

// FindByType implements thoughtflow.FlowStore.
func (s *MemoryFlowStore) FindByType(flowType thoughtflow.FlowType) ([]*thoughtflow.FlowDefinition, error) {
	return s.filter(func(f *thoughtflow.FlowDefinition) bool {
		return f.Type == flowType
	})
}

// FindByOrganizationAndType implements thoughtflow.FlowStore.
func (s *MemoryFlowStore) FindByOrganizationAndType(orgID string, flowType thoughtflow.FlowType) ([]*thoughtflow.FlowDefinition, error) {
	return s.filter(func(f *thoughtflow.FlowDefinition) bool {
		return f.OrganizationID == orgID && f.Type == flowType
	})
}

// FindByOrganizationAndStatus implements thoughtflow.FlowStore.
func (s *MemoryFlowStore) FindByOrganizationAndStatus(orgID string, status thoughtflow.FlowStatus) ([]*thoughtflow.FlowDefinition, error) {
	return s.filter(func(f *thoughtflow.FlowDefinition) bool {
		return f.OrganizationID == orgID && f.Status == status
	})
}

func (s *MemoryFlowStore) filter(keep func(*thoughtflow.FlowDefinition) bool) ([]*thoughtflow.FlowDefinition, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var flows []*thoughtflow.FlowDefinition
	for _, flow := range s.db.flows {
		if keep(flow) {
			flows = append(flows, copyFlow(flow))
		}
	}
	sort.Slice(flows, func(i, j int) bool {
		if !flows[i].CreatedAt.Equal(flows[j].CreatedAt) {
			return flows[i].CreatedAt.After(flows[j].CreatedAt)
		}
		return flows[i].ID < flows[j].ID
	})
	return flows, nil
}

// Delete implements thoughtflow.FlowStore.
func (s *MemoryFlowStore) Delete(id string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.flows[id]; !ok {
		return false, nil
	}
	delete(s.db.flows, id)
	return true, nil
}

// versionConflictError carries the stale version details and unwraps
// to thoughtflow.ErrVersionConflict.
type versionConflictError struct {
	id      string
	version int64
}

func (e *versionConflictError) Error() string {
	return "flow " + e.id + ": " + thoughtflow.ErrVersionConflict.Error()
}

func (e *versionConflictError) Unwrap() error {
	return thoughtflow.ErrVersionConflict
}

// MemoryExecutionStore implements thoughtflow.ExecutionStore in
// memory.
type MemoryExecutionStore struct {
	db *Memory
}

var _ thoughtflow.ExecutionStore = (*MemoryExecutionStore)(nil)

// Save implements thoughtflow.ExecutionStore. The referenced flow
// must exist; nothing is recorded otherwise.
func (s *MemoryExecutionStore) Save(execution *thoughtflow.FlowExecution) (*thoughtflow.FlowExecution, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.flows[execution.FlowID]; !ok {
		return nil, &FlowNotFoundError{FlowID: execution.FlowID}
	}

	saved := copyExecution(execution)
	s.db.executions = append(s.db.executions, saved)
	s.db.byExecID[saved.ID] = saved
	return copyExecution(saved), nil
}

// FindByID implements thoughtflow.ExecutionStore.
func (s *MemoryExecutionStore) FindByID(id string) (*thoughtflow.FlowExecution, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	exec, ok := s.db.byExecID[id]
	if !ok {
		return nil, &ExecutionNotFoundError{ExecutionID: id}
	}
	return copyExecution(exec), nil
}

// FindByFlowID implements thoughtflow.ExecutionStore.
func (s *MemoryExecutionStore) FindByFlowID(flowID string, limit int) ([]*thoughtflow.FlowExecution, error) {
	execs, err := s.filter(func(e *thoughtflow.FlowExecution) bool {
		return e.FlowID == flowID
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(execs) > limit {
		execs = execs[:limit]
	}
	return execs, nil
}

// FindByDebateID implements thoughtflow.ExecutionStore.
func (s *MemoryExecutionStore) FindByDebateID(debateID string) ([]*thoughtflow.FlowExecution, error) {
	return s.filter(func(e *thoughtflow.FlowExecution) bool {
		return e.DebateID == debateID
	})
}

// FindWithErrors implements thoughtflow.ExecutionStore.
func (s *MemoryExecutionStore) FindWithErrors(flowID string) ([]*thoughtflow.FlowExecution, error) {
	return s.filter(func(e *thoughtflow.FlowExecution) bool {
		return e.FlowID == flowID && e.ErrorMessage != nil
	})
}

// FindSlowest implements thoughtflow.ExecutionStore.
func (s *MemoryExecutionStore) FindSlowest(flowID string, limit int) ([]*thoughtflow.FlowExecution, error) {
	execs, err := s.filter(func(e *thoughtflow.FlowExecution) bool {
		return e.FlowID == flowID
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(execs, func(i, j int) bool {
		if execs[i].ProcessingTimeMs != execs[j].ProcessingTimeMs {
			return execs[i].ProcessingTimeMs > execs[j].ProcessingTimeMs
		}
		return execs[i].CreatedAt.After(execs[j].CreatedAt)
	})
	if limit > 0 && len(execs) > limit {
		execs = execs[:limit]
	}
	return execs, nil
}

// filter returns matching executions newest-first.
func (s *MemoryExecutionStore) filter(keep func(*thoughtflow.FlowExecution) bool) ([]*thoughtflow.FlowExecution, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var execs []*thoughtflow.FlowExecution
	for _, exec := range s.db.executions {
		if keep(exec) {
			execs = append(execs, copyExecution(exec))
		}
	}
	sort.SliceStable(execs, func(i, j int) bool {
		return execs[i].CreatedAt.After(execs[j].CreatedAt)
	})
	return execs, nil
}

// CountExecutions implements thoughtflow.ExecutionStore.
func (s *MemoryExecutionStore) CountExecutions(flowID string) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var n int64
	for _, exec := range s.db.executions {
		if exec.FlowID == flowID {
			n++
		}
	}
	return n, nil
}

// CountResponseChanges implements thoughtflow.ExecutionStore.
func (s *MemoryExecutionStore) CountResponseChanges(flowID string) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var n int64
	for _, exec := range s.db.executions {
		if exec.FlowID == flowID && exec.ResponseChanged {
			n++
		}
	}
	return n, nil
}

// AverageProcessingTime implements thoughtflow.ExecutionStore. An
// empty history averages to zero.
func (s *MemoryExecutionStore) AverageProcessingTime(flowID string) (float64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var (
		total int64
		n     int64
	)
	for _, exec := range s.db.executions {
		if exec.FlowID == flowID {
			total += exec.ProcessingTimeMs
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(total) / float64(n), nil
}

// ResponseChangeRate implements thoughtflow.ExecutionStore. An empty
// history has a rate of zero.
func (s *MemoryExecutionStore) ResponseChangeRate(flowID string) (float64, error) {
	total, err := s.CountExecutions(flowID)
	if err != nil {
		return 0, err
	}
	changes, err := s.CountResponseChanges(flowID)
	if err != nil {
		return 0, err
	}
	return changeRate(changes, total), nil
}

// DeleteBefore implements thoughtflow.ExecutionStore.
func (s *MemoryExecutionStore) DeleteBefore(cutoff time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var (
		kept    []*thoughtflow.FlowExecution
		removed int64
	)
	for _, exec := range s.db.executions {
		if exec.CreatedAt.Before(cutoff) {
			delete(s.db.byExecID, exec.ID)
			removed++
			continue
		}
		kept = append(kept, exec)
	}
	s.db.executions = kept
	return removed, nil
}
