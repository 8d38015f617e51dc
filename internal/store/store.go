// ABOUTME: Store interface and record types for coven-roster persistence
// ABOUTME: Defines Session, Task, Attributes, Locator and the typed store errors

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a locator resolves to no row
var ErrNotFound = errors.New("not found")

// StoreError wraps a connection or transaction failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StatementError reports a raw statement that the backend rejected.
// Index is the position of the statement inside a script, or 0 for a single statement.
type StatementError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d (%s): %v", e.Index, abbreviate(e.Statement, 60), e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Column orders used when rows are rendered or listed.
var (
	SessionColumns = []string{
		"id", "uid", "online", "joined", "last_online", "sessions",
		"public_ip", "mac_address", "local_ip", "username", "administrator",
		"platform", "device", "architecture", "latitude", "longitude", "owner",
	}
	SummaryColumns = []string{"uid", "public_ip", "platform"}
	TaskColumns    = []string{"id", "uid", "session", "task", "result", "issued", "completed"}
)

// Session is one tracked agent, keyed by its derived uid.
type Session struct {
	ID            int64
	UID           string
	Online        bool
	Joined        time.Time
	LastOnline    time.Time
	Sessions      int64
	PublicIP      string
	MACAddress    string
	LocalIP       string
	Username      string
	Administrator bool
	Platform      string
	Device        string
	Architecture  string
	Latitude      *float64
	Longitude     *float64
	Owner         string
}

// SessionSummary is the short projection used by listings and counts.
type SessionSummary struct {
	UID      string
	PublicIP string
	Platform string
}

// Summary projects the session onto its summary columns.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{UID: s.UID, PublicIP: s.PublicIP, Platform: s.Platform}
}

// Row returns every stored column keyed by column name.
func (s *Session) Row() map[string]any {
	return map[string]any{
		"id":            s.ID,
		"uid":           s.UID,
		"online":        s.Online,
		"joined":        formatTime(s.Joined),
		"last_online":   formatTime(s.LastOnline),
		"sessions":      s.Sessions,
		"public_ip":     s.PublicIP,
		"mac_address":   s.MACAddress,
		"local_ip":      s.LocalIP,
		"username":      s.Username,
		"administrator": s.Administrator,
		"platform":      s.Platform,
		"device":        s.Device,
		"architecture":  s.Architecture,
		"latitude":      floatOrNil(s.Latitude),
		"longitude":     floatOrNil(s.Longitude),
		"owner":         s.Owner,
	}
}

// Row returns the summary columns keyed by column name.
func (s SessionSummary) Row() map[string]any {
	return map[string]any{
		"uid":       s.UID,
		"public_ip": s.PublicIP,
		"platform":  s.Platform,
	}
}

// Task is one unit of work dispatched to a session.
type Task struct {
	ID        int64
	UID       string
	Session   string
	Task      string
	Result    *string
	Issued    time.Time
	Completed *time.Time
}

// Pending reports whether the task is still waiting for a result.
func (t *Task) Pending() bool {
	return t.Completed == nil
}

// Row returns every stored column keyed by column name.
func (t *Task) Row() map[string]any {
	row := map[string]any{
		"id":        t.ID,
		"uid":       t.UID,
		"session":   t.Session,
		"task":      t.Task,
		"result":    nil,
		"issued":    formatTime(t.Issued),
		"completed": nil,
	}
	if t.Result != nil {
		row["result"] = *t.Result
	}
	if t.Completed != nil {
		row["completed"] = formatTime(*t.Completed)
	}
	return row
}

// Attributes carries the optional descriptive fields of a host.
// A nil field means "not supplied" and is left untouched by ApplyTo.
type Attributes struct {
	PublicIP      *string
	MACAddress    *string
	LocalIP       *string
	Username      *string
	Administrator *bool
	Platform      *string
	Device        *string
	Architecture  *string
	Latitude      *float64
	Longitude     *float64
	Owner         *string
}

// ApplyTo copies every supplied attribute onto s.
func (a Attributes) ApplyTo(s *Session) {
	setString(&s.PublicIP, a.PublicIP)
	setString(&s.MACAddress, a.MACAddress)
	setString(&s.LocalIP, a.LocalIP)
	setString(&s.Username, a.Username)
	if a.Administrator != nil {
		s.Administrator = *a.Administrator
	}
	setString(&s.Platform, a.Platform)
	setString(&s.Device, a.Device)
	setString(&s.Architecture, a.Architecture)
	if a.Latitude != nil {
		v := *a.Latitude
		s.Latitude = &v
	}
	if a.Longitude != nil {
		v := *a.Longitude
		s.Longitude = &v
	}
	setString(&s.Owner, a.Owner)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Locator identifies a session either by uid or by row id.
type Locator struct {
	uid   string
	rowID int64
	byRow bool
}

// ByUID locates a session by its derived uid.
func ByUID(uid string) Locator {
	return Locator{uid: uid}
}

// ByRowID locates a session by its integer row id.
func ByRowID(id int64) Locator {
	return Locator{rowID: id, byRow: true}
}

// clause returns the WHERE fragment and its argument.
func (l Locator) clause() (string, any) {
	if l.byRow {
		return "id = ?", l.rowID
	}
	return "uid = ?", l.uid
}

// UID returns the uid and true for a uid locator.
func (l Locator) UID() (string, bool) {
	return l.uid, !l.byRow
}

func (l Locator) String() string {
	if l.byRow {
		return fmt.Sprintf("id:%d", l.rowID)
	}
	return "uid:" + l.uid
}

// ResultSet is the materialized output of one raw statement.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Maps converts every row into a column-keyed mapping.
func (r *ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, values := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			m[col] = values[i]
		}
		out = append(out, m)
	}
	return out
}

// Store defines session and task persistence used by the lifecycle tracker
type Store interface {
	// Sessions
	ResolveSession(ctx context.Context, candidate *Session, now time.Time) (*Session, bool, error)
	UpdateSessionAttributes(ctx context.Context, uid string, attrs Attributes) (*Session, error)
	GetSession(ctx context.Context, loc Locator) (*Session, error)
	SetStatus(ctx context.Context, loc Locator, online bool, now time.Time) error
	ListSessions(ctx context.Context) ([]*Session, error)
	ListSessionSummaries(ctx context.Context) ([]SessionSummary, error)

	// Tasks
	CreateTask(ctx context.Context, task *Task) error
	CompleteTask(ctx context.Context, uid, result string, completed time.Time) (bool, error)
	GetTask(ctx context.Context, uid string) (*Task, error)
	ListTasks(ctx context.Context) ([]*Task, error)
	ListSessionTasks(ctx context.Context, session string) ([]*Task, error)

	// Close releases any resources held by the store
	Close() error
}

// StatementRunner executes raw, parameterized statements.
type StatementRunner interface {
	Query(ctx context.Context, stmt string, args ...any) (*ResultSet, error)
	ExecScript(ctx context.Context, stmts []string) ([]*ResultSet, error)
}

const timeFormat = time.RFC3339Nano

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
