package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionLineRejected   = "webhook.line_rejected"
	ActionWebhookFailed  = "webhook.failed"
	ActionRowRejected    = "import.row_rejected"
	ActionImportFailed   = "import.failed"
	ActionImportComplete = "import.completed"
	ActionDatesFilled    = "delivery_dates.filled"
	ActionCleanup        = "import.cleanup"
)

type Entry struct {
	OccurredAt time.Time
	Action     string
	Message    string
	OrderID    string
	RequestID  string
	Metadata   map[string]any
}

// Sink persists entries. Implementations must be append-only.
type Sink interface {
	Insert(ctx context.Context, entry Entry) error
}

type Logger struct {
	sink      Sink
	logger    *slog.Logger
	now       func() time.Time
	requestID func(context.Context) string
}

func NewLogger(sink Sink, logger *slog.Logger) *Logger {
	return &Logger{sink: sink, logger: logger, now: time.Now}
}

// WithRequestID sets the function used to stamp entries that carry no
// request id of their own.
func (l *Logger) WithRequestID(fn func(context.Context) string) *Logger {
	l.requestID = fn
	return l
}

// Log records the entry durably and mirrors it to the structured log.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = l.now()
	}
	if entry.RequestID == "" && l.requestID != nil {
		entry.RequestID = l.requestID(ctx)
	}
	if l.logger != nil {
		l.logger.WarnContext(ctx, "audit_event",
			"action", entry.Action,
			"message", entry.Message,
			"order_id", entry.OrderID,
			"request_id", entry.RequestID,
		)
	}
	if err := l.sink.Insert(ctx, entry); err != nil {
		if l.logger != nil {
			l.logger.ErrorContext(ctx, "audit_write_failed", "action", entry.Action, "error", err)
		}
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

type PGSink struct {
	pool *pgxpool.Pool
}

func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

func (s *PGSink) Insert(ctx context.Context, entry Entry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (occurred_at, action, message, order_id, request_id, metadata)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
	`, entry.OccurredAt, entry.Action, entry.Message, entry.OrderID, entry.RequestID, metadata)
	return err
}

type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Insert(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Count returns how many entries carry the given action.
func (s *MemorySink) Count(action string) int {
	n := 0
	for _, e := range s.Entries() {
		if e.Action == action {
			n++
		}
	}
	return n
}
