package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mindfold/thoughtflow/pkg/thoughtflow"
	"github.com/mindfold/thoughtflow/pkg/thoughtflow/config"
)

// DB is a SQLite-backed database holding both flow definitions and
// execution records. It is suitable for single-process production use.
//
// The two stores returned by Flows and Executions share the database
// and its lock, so the execution store's referential check against the
// flows table sees a consistent view.
type DB struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Open creates or opens a SQLite database at path. Use ":memory:" for
// testing.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: access is serialized by our lock anyway, and a
	// pooled ":memory:" database would otherwise open one empty
	// database per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flows (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			type TEXT NOT NULL,
			configuration TEXT NOT NULL,
			status TEXT NOT NULL,
			organization_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create flows table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_flows_organization
		ON flows(organization_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create flows index: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			flow_id TEXT NOT NULL,
			debate_id TEXT NOT NULL,
			participant_id TEXT NOT NULL,
			prompt TEXT NOT NULL,
			result TEXT NOT NULL,
			processing_time_ms INTEGER NOT NULL,
			response_changed INTEGER NOT NULL,
			error_message TEXT,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create executions table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_executions_flow_id
		ON executions(flow_id, created_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create executions index: %w", err)
	}

	return &DB{db: db}, nil
}

// Flows returns the flow-definition store backed by this database.
func (d *DB) Flows() *SQLiteFlowStore {
	return &SQLiteFlowStore{db: d}
}

// Executions returns the execution store backed by this database.
func (d *DB) Executions() *SQLiteExecutionStore {
	return &SQLiteExecutionStore{db: d}
}

// Close closes the underlying database. Further operations on either
// store return ErrStoreClosed.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	d.closed = true
	return d.db.Close()
}

// SQLiteFlowStore implements thoughtflow.FlowStore over SQLite.
type SQLiteFlowStore struct {
	db *DB
}

var _ thoughtflow.FlowStore = (*SQLiteFlowStore)(nil)

// Save implements thoughtflow.FlowStore. Inserts are taken as-is;
// updates only touch the mutable fields, bump Version and are guarded
// by a compare-and-swap on the caller's Version.
func (s *SQLiteFlowStore) Save(flow *thoughtflow.FlowDefinition) (*thoughtflow.FlowDefinition, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.closed {
		return nil, ErrStoreClosed
	}

	cfgJSON, err := json.Marshal(flow.Configuration.Raw())
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}

	var existingVersion int64
	err = s.db.db.QueryRow(`SELECT version FROM flows WHERE id = ?`, flow.ID).Scan(&existingVersion)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.db.Exec(`
			INSERT INTO flows (id, name, description, type, configuration, status, organization_id, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, flow.ID, flow.Name, flow.Description, flow.Type.String(), string(cfgJSON),
			string(flow.Status), flow.OrganizationID, flow.Version,
			flow.CreatedAt.UTC().Format(time.RFC3339Nano),
			flow.UpdatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return nil, fmt.Errorf("insert flow: %w", err)
		}
		saved := *flow
		return &saved, nil

	case err != nil:
		return nil, fmt.Errorf("check existing flow: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.db.Exec(`
		UPDATE flows
		SET name = ?, description = ?, configuration = ?, status = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, flow.Name, flow.Description, string(cfgJSON), string(flow.Status),
		now.Format(time.RFC3339Nano), flow.ID, flow.Version)
	if err != nil {
		return nil, fmt.Errorf("update flow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update flow: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("flow %s at version %d: %w", flow.ID, flow.Version, thoughtflow.ErrVersionConflict)
	}

	return s.findByIDLocked(flow.ID)
}

// FindByID implements thoughtflow.FlowStore.
func (s *SQLiteFlowStore) FindByID(id string) (*thoughtflow.FlowDefinition, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if s.db.closed {
		return nil, ErrStoreClosed
	}
	return s.findByIDLocked(id)
}

func (s *SQLiteFlowStore) findByIDLocked(id string) (*thoughtflow.FlowDefinition, error) {
	row := s.db.db.QueryRow(`
		SELECT id, name, description, type, configuration, status, organization_id, version, created_at, updated_at
		FROM flows WHERE id = ?
	`, id)

	flow, err := scanFlow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, &FlowNotFoundError{FlowID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	return flow, nil
}

// FindByOrganization implements thoughtflow.FlowStore.
func (s *SQLiteFlowStore) FindByOrganization(orgID string) ([]*thoughtflow.FlowDefinition, error) {
	return s.query(`WHERE organization_id = ?`, orgID)
}

// FindByType implements thoughtflow.FlowStore.
func (s *SQLiteFlowStore) FindByType(flowType thoughtflow.FlowType) ([]*thoughtflow.FlowDefinition, error) {
	return s.query(`WHERE type = ?`, flowType.String())
}

// FindByOrganizationAndType implements thoughtflow.FlowStore.
func (s *SQLiteFlowStore) FindByOrganizationAndType(orgID string, flowType thoughtflow.FlowType) ([]*thoughtflow.FlowDefinition, error) {
	return s.query(`WHERE organization_id = ? AND type = ?`, orgID, flowType.String())
}

// FindByOrganizationAndStatus implements thoughtflow.FlowStore.
func (s *SQLiteFlowStore) FindByOrganizationAndStatus(orgID string, status thoughtflow.FlowStatus) ([]*thoughtflow.FlowDefinition, error) {
	return s.query(`WHERE organization_id = ? AND status = ?`, orgID, string(status))
}

func (s *SQLiteFlowStore) query(where string, args ...any) ([]*thoughtflow.FlowDefinition, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if s.db.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.db.Query(`
		SELECT id, name, description, type, configuration, status, organization_id, version, created_at, updated_at
		FROM flows `+where+` ORDER BY created_at DESC, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	var flows []*thoughtflow.FlowDefinition
	for rows.Next() {
		flow, err := scanFlow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return flows, nil
}

// Delete implements thoughtflow.FlowStore.
func (s *SQLiteFlowStore) Delete(id string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.closed {
		return false, ErrStoreClosed
	}

	res, err := s.db.db.Exec(`DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete flow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete flow: %w", err)
	}
	return affected > 0, nil
}

func scanFlow(scan func(dest ...any) error) (*thoughtflow.FlowDefinition, error) {
	var (
		flow      thoughtflow.FlowDefinition
		typ       string
		cfgJSON   string
		status    string
		createdAt string
		updatedAt string
	)
	if err := scan(&flow.ID, &flow.Name, &flow.Description, &typ, &cfgJSON,
		&status, &flow.OrganizationID, &flow.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cfgJSON), &raw); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	flow.Type = thoughtflow.FlowType(typ)
	flow.Configuration = config.New(raw)
	flow.Status = thoughtflow.FlowStatus(status)
	flow.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	flow.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &flow, nil
}

// SQLiteExecutionStore implements thoughtflow.ExecutionStore over
// SQLite.
type SQLiteExecutionStore struct {
	db *DB
}

var _ thoughtflow.ExecutionStore = (*SQLiteExecutionStore)(nil)

// Save implements thoughtflow.ExecutionStore. The referenced flow
// must exist; the check runs before anything is written.
func (s *SQLiteExecutionStore) Save(execution *thoughtflow.FlowExecution) (*thoughtflow.FlowExecution, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.closed {
		return nil, ErrStoreClosed
	}

	var exists int
	err := s.db.db.QueryRow(`SELECT 1 FROM flows WHERE id = ?`, execution.FlowID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, &FlowNotFoundError{FlowID: execution.FlowID}
	}
	if err != nil {
		return nil, fmt.Errorf("check flow exists: %w", err)
	}

	resultJSON, err := json.Marshal(execution.Result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	changed := 0
	if execution.ResponseChanged {
		changed = 1
	}
	var errMsg sql.NullString
	if execution.ErrorMessage != nil {
		errMsg = sql.NullString{String: *execution.ErrorMessage, Valid: true}
	}

	_, err = s.db.db.Exec(`
		INSERT INTO executions (id, flow_id, debate_id, participant_id, prompt, result, processing_time_ms, response_changed, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, execution.ID, execution.FlowID, execution.DebateID, execution.ParticipantID,
		execution.Prompt, string(resultJSON), execution.ProcessingTimeMs, changed,
		errMsg, execution.CreatedAt.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert execution: %w", err)
	}

	saved := *execution
	return &saved, nil
}

// FindByID implements thoughtflow.ExecutionStore.
func (s *SQLiteExecutionStore) FindByID(id string) (*thoughtflow.FlowExecution, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if s.db.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.db.QueryRow(`
		SELECT id, flow_id, debate_id, participant_id, prompt, result, processing_time_ms, response_changed, error_message, created_at
		FROM executions WHERE id = ?
	`, id)
	exec, err := scanExecution(row.Scan)
	if err == sql.ErrNoRows {
		return nil, &ExecutionNotFoundError{ExecutionID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load execution: %w", err)
	}
	return exec, nil
}

// FindByFlowID implements thoughtflow.ExecutionStore.
func (s *SQLiteExecutionStore) FindByFlowID(flowID string, limit int) ([]*thoughtflow.FlowExecution, error) {
	q := `WHERE flow_id = ? ORDER BY created_at DESC, id`
	args := []any{flowID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(q, args...)
}

// FindByDebateID implements thoughtflow.ExecutionStore.
func (s *SQLiteExecutionStore) FindByDebateID(debateID string) ([]*thoughtflow.FlowExecution, error) {
	return s.query(`WHERE debate_id = ? ORDER BY created_at DESC, id`, debateID)
}

// FindWithErrors implements thoughtflow.ExecutionStore.
func (s *SQLiteExecutionStore) FindWithErrors(flowID string) ([]*thoughtflow.FlowExecution, error) {
	return s.query(`WHERE flow_id = ? AND error_message IS NOT NULL ORDER BY created_at DESC, id`, flowID)
}

// FindSlowest implements thoughtflow.ExecutionStore.
func (s *SQLiteExecutionStore) FindSlowest(flowID string, limit int) ([]*thoughtflow.FlowExecution, error) {
	q := `WHERE flow_id = ? ORDER BY processing_time_ms DESC, created_at DESC`
	args := []any{flowID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(q, args...)
}

func (s *SQLiteExecutionStore) query(where string, args ...any) ([]*thoughtflow.FlowExecution, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if s.db.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.db.Query(`
		SELECT id, flow_id, debate_id, participant_id, prompt, result, processing_time_ms, response_changed, error_message, created_at
		FROM executions `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var execs []*thoughtflow.FlowExecution
	for rows.Next() {
		exec, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return execs, nil
}

// CountExecutions implements thoughtflow.ExecutionStore.
func (s *SQLiteExecutionStore) CountExecutions(flowID string) (int64, error) {
	return s.count(`SELECT COUNT(*) FROM executions WHERE flow_id = ?`, flowID)
}

// CountResponseChanges implements thoughtflow.ExecutionStore.
func (s *SQLiteExecutionStore) CountResponseChanges(flowID string) (int64, error) {
	return s.count(`SELECT COUNT(*) FROM executions WHERE flow_id = ? AND response_changed = 1`, flowID)
}

func (s *SQLiteExecutionStore) count(q string, args ...any) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if s.db.closed {
		return 0, ErrStoreClosed
	}

	var n int64
	if err := s.db.db.QueryRow(q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return n, nil
}

// AverageProcessingTime implements thoughtflow.ExecutionStore. An
// empty history averages to zero.
func (s *SQLiteExecutionStore) AverageProcessingTime(flowID string) (float64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if s.db.closed {
		return 0, ErrStoreClosed
	}

	var avg float64
	err := s.db.db.QueryRow(`
		SELECT COALESCE(AVG(processing_time_ms), 0) FROM executions WHERE flow_id = ?
	`, flowID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average processing time: %w", err)
	}
	return avg, nil
}

// ResponseChangeRate implements thoughtflow.ExecutionStore. An empty
// history has a rate of zero.
func (s *SQLiteExecutionStore) ResponseChangeRate(flowID string) (float64, error) {
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

// DeleteBefore implements thoughtflow.ExecutionStore. The count comes
// from the delete statement itself.
func (s *SQLiteExecutionStore) DeleteBefore(cutoff time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.closed {
		return 0, ErrStoreClosed
	}

	res, err := s.db.db.Exec(`DELETE FROM executions WHERE created_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete executions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete executions: %w", err)
	}
	return affected, nil
}

func scanExecution(scan func(dest ...any) error) (*thoughtflow.FlowExecution, error) {
	var (
		exec       thoughtflow.FlowExecution
		resultJSON string
		changed    int
		errMsg     sql.NullString
		createdAt  int64
	)
	if err := scan(&exec.ID, &exec.FlowID, &exec.DebateID, &exec.ParticipantID,
		&exec.Prompt, &resultJSON, &exec.ProcessingTimeMs, &changed, &errMsg, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(resultJSON), &exec.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	exec.ResponseChanged = changed == 1
	if errMsg.Valid {
		msg := errMsg.String
		exec.ErrorMessage = &msg
	}
	exec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &exec, nil
}
