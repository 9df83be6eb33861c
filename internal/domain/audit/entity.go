package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outcome of the recorded action.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Risk classification. High risk entries are pushed to the live admin feed.
const (
	RiskLow  = "low"
	RiskHigh = "high"
)

// Action kinds recorded by the vault.
const (
	ActionWorkspaceEnsure = "workspace_ensure"
	ActionFolderCreate    = "folder_create"
	ActionFolderArchive   = "folder_archive"
	ActionFolderReassign  = "folder_reassign"
	ActionFileUpload      = "file_upload"
	ActionFileDownload    = "file_download"
	ActionFileList        = "file_list"
	ActionFileDelete      = "file_delete"
	ActionFilePurge       = "file_purge"
	ActionGrantCreate     = "grant_create"
	ActionGrantRevoke     = "grant_revoke"
	ActionIntegrityFail   = "integrity_failure"
)

// Entry is one append-only audit record. Application code never updates or
// deletes rows; retention is a separate compliance process.
type Entry struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID   *string         `gorm:"column:actor_id;index" json:"actor_id,omitempty"` // nil for system actions
	Action    string          `gorm:"column:action;index" json:"action"`
	Module    string          `gorm:"column:module;index" json:"module"`
	SubjectID string          `gorm:"column:subject_id;index" json:"subject_id,omitempty"`
	Outcome   string          `gorm:"column:outcome" json:"outcome"`
	Risk      string          `gorm:"column:risk;index" json:"risk"`
	Detail    json.RawMessage `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	Origin    string          `gorm:"column:origin" json:"origin,omitempty"`
	CreatedAt time.Time       `gorm:"column:created_at;index" json:"created_at"`
}

func (Entry) TableName() string { return "audit_entries" }

func (e *Entry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Event is the writer-facing shape; the writer turns it into an Entry.
type Event struct {
	Actor     string // empty for system-initiated actions
	Action    string
	Module    string
	SubjectID string
	Outcome   string
	Risk      string
	Detail    map[string]any
	Origin    string
}

// ClassifyRisk applies the platform risk rules: superadmin bypasses,
// integrity failures and deletes are high risk, everything else low.
func ClassifyRisk(action string, superadminBypass bool) string {
	if superadminBypass {
		return RiskHigh
	}
	switch action {
	case ActionFileDelete, ActionFilePurge, ActionIntegrityFail:
		return RiskHigh
	default:
		return RiskLow
	}
}
