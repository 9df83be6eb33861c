package vault

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role of an authenticated principal.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RoleNurse      Role = "nurse"
	RolePatient    Role = "patient"
)

// Staff reports whether the role belongs to clinical staff.
func (r Role) Staff() bool { return r == RoleDoctor || r == RoleNurse }

// Known reports whether the role is part of the platform role set.
func (r Role) Known() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDoctor, RoleNurse, RolePatient:
		return true
	}
	return false
}

// Operation requested against a folder or workspace.
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
	OpAdmin  Operation = "admin"
)

// Principal is the authenticated actor making a vault request. The context
// comes from the platform's auth layer; the vault re-validates authorization
// for every call regardless.
type Principal struct {
	ID     string
	Role   Role
	Module string // module an admin token is scoped to
	Origin string // network address, recorded in the audit trail
}

// Access levels attached to stored files.
const (
	AccessRestricted   = "restricted"
	AccessConfidential = "confidential"
)

// Lifecycle statuses.
const (
	WorkspaceActive    = "active"
	WorkspaceSuspended = "suspended"

	FolderActive   = "active"
	FolderArchived = "archived"

	FileUploaded = "uploaded"
	FileArchived = "archived"
	FileDeleted  = "deleted"
)

// WorkspaceSubfolders are the marker prefixes created under every workspace.
var WorkspaceSubfolders = []string{"documents", "reports", "images", "temp", "archive"}

// FolderCategories are the clinical category prefixes of a subject folder.
var FolderCategories = []string{
	"medical_records",
	"lab_results",
	"imaging",
	"prescriptions",
	"treatment_plans",
	"progress_notes",
	"discharge_summaries",
	"consent_forms",
}

// ValidCategory reports whether c is one of the folder categories.
func ValidCategory(c string) bool {
	for _, known := range FolderCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Workspace is a principal's root namespace within a module. Never hard
// deleted, only suspended.
type Workspace struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PrincipalID string    `gorm:"column:principal_id;uniqueIndex:idx_workspace_principal_module" json:"principal_id"`
	Module      string    `gorm:"column:module;uniqueIndex:idx_workspace_principal_module" json:"module"`
	PathPrefix  string    `gorm:"column:path_prefix" json:"path_prefix"`
	QuotaBytes  int64     `gorm:"column:quota_bytes" json:"quota_bytes"`
	UsageBytes  int64     `gorm:"column:usage_bytes" json:"usage_bytes"`
	Status      string    `gorm:"column:status;default:active" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Workspace) TableName() string { return "vault_workspaces" }

func (w *Workspace) BeforeCreate(_ *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Folder is a subject-scoped collection of categorized files. Its path prefix
// is always a descendant of the responsible principal's workspace prefix.
type Folder struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID     string    `gorm:"column:subject_id;uniqueIndex:idx_folder_subject_module" json:"subject_id"`
	Module        string    `gorm:"column:module;uniqueIndex:idx_folder_subject_module" json:"module"`
	PathPrefix    string    `gorm:"column:path_prefix" json:"path_prefix"`
	ResponsibleID string    `gorm:"column:responsible_id;index" json:"responsible_id"`
	AssignedID    string    `gorm:"column:assigned_id;index" json:"assigned_id"`
	Status        string    `gorm:"column:status;default:active" json:"status"`
	IndexKey      string    `gorm:"column:index_key" json:"-"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Folder) TableName() string { return "vault_folders" }

func (f *Folder) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// FileRecord is the local metadata of one stored object.
type FileRecord struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FolderID       uuid.UUID  `gorm:"column:folder_id;type:uuid;index" json:"folder_id"`
	Name           string     `gorm:"column:name" json:"name"`
	Category       string     `gorm:"column:category;index" json:"category"`
	ObjectKey      string     `gorm:"column:object_key;uniqueIndex" json:"-"`
	SizeBytes      int64      `gorm:"column:size_bytes" json:"size_bytes"`
	StoredBytes    int64      `gorm:"column:stored_bytes" json:"stored_bytes"`
	ContentType    string     `gorm:"column:content_type" json:"content_type"`
	Checksum       string     `gorm:"column:checksum" json:"checksum"`
	Encrypted      bool       `gorm:"column:encrypted" json:"encrypted"`
	KeyID          string     `gorm:"column:key_id" json:"-"`
	AccessLevel    string     `gorm:"column:access_level;default:restricted" json:"access_level"`
	UploaderID     string     `gorm:"column:uploader_id" json:"uploader_id"`
	Status         string     `gorm:"column:status;default:uploaded;index" json:"status"`
	UploadedAt     time.Time  `gorm:"column:uploaded_at" json:"uploaded_at"`
	LastAccessedAt *time.Time `gorm:"column:last_accessed_at" json:"last_accessed_at,omitempty"`
}

func (FileRecord) TableName() string { return "vault_files" }

func (f *FileRecord) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// AccessGrant is a materialized delegated permission. FolderID nil with a
// module set represents a module-level grant (used for admin delete rights).
type AccessGrant struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FolderID   *uuid.UUID `gorm:"column:folder_id;type:uuid;index" json:"folder_id,omitempty"`
	Module     string     `gorm:"column:module;index" json:"module"`
	GranteeID  string     `gorm:"column:grantee_id;index" json:"grantee_id"`
	Operations string     `gorm:"column:operations" json:"operations"` // comma-separated
	GrantedBy  string     `gorm:"column:granted_by" json:"granted_by"`
	ExpiresAt  *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	Revoked    bool       `gorm:"column:revoked;default:false" json:"revoked"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (AccessGrant) TableName() string { return "vault_grants" }

func (g *AccessGrant) BeforeCreate(_ *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Active reports whether the grant is usable at the given instant.
func (g *AccessGrant) Active(now time.Time) bool {
	if g.Revoked {
		return false
	}
	if g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
		return false
	}
	return true
}

// Covers reports whether the grant includes the operation.
func (g *AccessGrant) Covers(op Operation) bool {
	for _, part := range strings.Split(g.Operations, ",") {
		if Operation(strings.TrimSpace(part)) == op {
			return true
		}
	}
	return false
}

// OperationsList joins operations into the stored comma form.
func OperationsList(ops []Operation) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = string(op)
	}
	return strings.Join(parts, ",")
}

// FolderIndex is the encrypted bootstrap object persisted at
// <folderPrefix>/folder_index.json, used for discovery when the relational
// store is unavailable.
type FolderIndex struct {
	SubjectID     string    `json:"subject_id"`
	ResponsibleID string    `json:"responsible_id"`
	Module        string    `json:"module"`
	CreatedAt     time.Time `json:"created_at"`
	Categories    []string  `json:"categories"`
}

// FileSummary is one row of a folder listing. Degraded marks summaries
// synthesized from object-store metadata alone, without a local FileRecord.
type FileSummary struct {
	FileID      string    `json:"file_id,omitempty"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type,omitempty"`
	AccessLevel string    `json:"access_level,omitempty"`
	Status      string    `json:"status,omitempty"`
	ModifiedAt  time.Time `json:"modified_at"`
	Degraded    bool      `json:"degraded"`
}
