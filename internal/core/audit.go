package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/watchlist/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	AuditPreview      AuditAction = "import_preview"
	AuditImportCommit AuditAction = "import_commit"
	AuditExport       AuditAction = "export"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string         `json:"id"`
	Action       AuditAction    `json:"action"`
	Severity     AuditSeverity  `json:"severity"`
	OwnerID      string         `json:"ownerId"`
	BatchID      string         `json:"batchId,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	RowsAffected int            `json:"rowsAffected,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
// IP address and user agent are taken from the context.
type AuditLogParams struct {
	Action       AuditAction
	OwnerID      string
	BatchID      string
	RowsAffected int
	Details      map[string]any
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction, rowsAffected int) AuditSeverity {
	switch action {
	case AuditImportCommit:
		if rowsAffected > 0 {
			return SeverityHigh
		}
		return SeverityMedium
	case AuditExport:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// LogAudit records an audit entry. Audit failures are logged and never
// fail the operation being audited.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) *AuditEntry {
	entry := AuditEntry{
		ID:           uuid.NewString(),
		Action:       params.Action,
		Severity:     determineSeverity(params.Action, params.RowsAffected),
		OwnerID:      params.OwnerID,
		BatchID:      params.BatchID,
		IPAddress:    GetIPAddressFromContext(ctx),
		UserAgent:    GetUserAgentFromContext(ctx),
		RowsAffected: params.RowsAffected,
		Details:      params.Details,
		CreatedAt:    s.now(),
	}

	if err := s.store.InsertAudit(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to write audit entry",
			"action", entry.Action,
			"owner_id", entry.OwnerID,
			"error", err,
		)
		return nil
	}
	return &entry
}

// ----------------------------------------------------------------------------
// Query
// ----------------------------------------------------------------------------

// DefaultAuditLimit caps an audit query that sets no limit.
const DefaultAuditLimit = 100

// MaxAuditLimit is the largest page an audit query may request.
const MaxAuditLimit = 1000

// AuditQuery filters the audit log. Zero values match everything.
type AuditQuery struct {
	OwnerID string
	Action  AuditAction
	Since   time.Time
	Limit   int
}

// AuditLog returns the owner's audit entries, newest first.
func (s *Service) AuditLog(ctx context.Context, q AuditQuery) ([]AuditEntry, error) {
	if strings.TrimSpace(q.OwnerID) == "" {
		return nil, ValidationErrors{{Field: "ownerId", Message: "required field is empty"}}
	}
	switch q.Action {
	case "", AuditPreview, AuditImportCommit, AuditExport:
	default:
		return nil, ValidationErrors{{Field: "action", Value: string(q.Action),
			Message: "invalid enum value (allowed: import_preview, import_commit, export)"}}
	}

	if q.Limit <= 0 {
		q.Limit = DefaultAuditLimit
	}
	if q.Limit > MaxAuditLimit {
		q.Limit = MaxAuditLimit
	}

	entries, err := s.store.ListAudit(ctx, q)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}
