package vault

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type WorkspaceRepository interface {
	GetByPrincipal(ctx context.Context, principalID, module string) (*Workspace, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	Create(ctx context.Context, w *Workspace) error
	// AddUsage applies the delta as a single atomic UPDATE so concurrent
	// uploads never lose counter updates.
	AddUsage(ctx context.Context, id uuid.UUID, delta int64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type FolderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Folder, error)
	GetBySubject(ctx context.Context, subjectID, module string) (*Folder, error)
	Create(ctx context.Context, f *Folder) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Reassign(ctx context.Context, id uuid.UUID, assignedID string) error
}

type FileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*FileRecord, error)
	ListByFolder(ctx context.Context, folderID uuid.UUID, category string) ([]FileRecord, error)
	Create(ctx context.Context, f *FileRecord) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	TouchAccessed(ctx context.Context, id uuid.UUID, at time.Time) error
	HardDelete(ctx context.Context, id uuid.UUID) error
}

type GrantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*AccessGrant, error)
	// ActiveForPrincipal returns unrevoked grants for the grantee within the
	// module, folder-level and module-level alike. Expiry is evaluated by
	// the access table, not the query, so the evaluator stays the single
	// source of truth.
	ActiveForPrincipal(ctx context.Context, granteeID, module string) ([]AccessGrant, error)
	Create(ctx context.Context, g *AccessGrant) error
	Revoke(ctx context.Context, id uuid.UUID) error
}

// IsUniqueViolation detects duplicate-key failures from both backends:
// Postgres error 23505 via pgconn, and the SQLite driver by message.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type workspaceRepo struct{ db *gorm.DB }

func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository { return &workspaceRepo{db: db} }

func (r *workspaceRepo) GetByPrincipal(ctx context.Context, principalID, module string) (*Workspace, error) {
	var w Workspace
	err := r.db.WithContext(ctx).
		Where("principal_id = ? AND module = ?", principalID, module).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	var w Workspace
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workspaceRepo) Create(ctx context.Context, w *Workspace) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *workspaceRepo) AddUsage(ctx context.Context, id uuid.UUID, delta int64) error {
	return r.db.WithContext(ctx).Model(&Workspace{}).
		Where("id = ?", id).
		Update("usage_bytes", gorm.Expr("usage_bytes + ?", delta)).Error
}

func (r *workspaceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&Workspace{}).
		Where("id = ?", id).
		Update("status", status).Error
}

type folderRepo struct{ db *gorm.DB }

func NewFolderRepository(db *gorm.DB) FolderRepository { return &folderRepo{db: db} }

func (r *folderRepo) GetByID(ctx context.Context, id uuid.UUID) (*Folder, error) {
	var f Folder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *folderRepo) GetBySubject(ctx context.Context, subjectID, module string) (*Folder, error) {
	var f Folder
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND module = ?", subjectID, module).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *folderRepo) Create(ctx context.Context, f *Folder) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *folderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&Folder{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *folderRepo) Reassign(ctx context.Context, id uuid.UUID, assignedID string) error {
	return r.db.WithContext(ctx).Model(&Folder{}).
		Where("id = ?", id).
		Update("assigned_id", assignedID).Error
}

type fileRepo struct{ db *gorm.DB }

func NewFileRepository(db *gorm.DB) FileRepository { return &fileRepo{db: db} }

func (r *fileRepo) GetByID(ctx context.Context, id uuid.UUID) (*FileRecord, error) {
	var f FileRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) ListByFolder(ctx context.Context, folderID uuid.UUID, category string) ([]FileRecord, error) {
	q := r.db.WithContext(ctx).Where("folder_id = ?", folderID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var files []FileRecord
	err := q.Order("uploaded_at DESC").Find(&files).Error
	return files, err
}

func (r *fileRepo) Create(ctx context.Context, f *FileRecord) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *fileRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&FileRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *fileRepo) TouchAccessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&FileRecord{}).
		Where("id = ?", id).
		Update("last_accessed_at", at).Error
}

func (r *fileRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&FileRecord{}).Error
}

type grantRepo struct{ db *gorm.DB }

func NewGrantRepository(db *gorm.DB) GrantRepository { return &grantRepo{db: db} }

func (r *grantRepo) GetByID(ctx context.Context, id uuid.UUID) (*AccessGrant, error) {
	var g AccessGrant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *grantRepo) ActiveForPrincipal(ctx context.Context, granteeID, module string) ([]AccessGrant, error) {
	var grants []AccessGrant
	err := r.db.WithContext(ctx).
		Where("grantee_id = ? AND module = ? AND revoked = ?", granteeID, module, false).
		Find(&grants).Error
	return grants, err
}

func (r *grantRepo) Create(ctx context.Context, g *AccessGrant) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *grantRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&AccessGrant{}).
		Where("id = ?", id).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Migrate creates the vault tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Workspace{}, &Folder{}, &FileRecord{}, &AccessGrant{})
}
