package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"medvault/internal/pkg/blobstore"
	"medvault/internal/pkg/envelope"
)

const (
	markerName      = ".keep"
	folderIndexName = "folder_index.json"
)

// Manager orchestrates workspace and folder lifecycle against the object
// store and the record store. It performs no authorization: the Service is
// the single entry point and authorizes before every call.
type Manager struct {
	workspaces WorkspaceRepository
	folders    FolderRepository
	files      FileRepository
	store      blobstore.Store
	cipher     *envelope.Cipher

	maxUpload    int64
	defaultQuota int64
}

func NewManager(
	workspaces WorkspaceRepository,
	folders FolderRepository,
	files FileRepository,
	store blobstore.Store,
	cipher *envelope.Cipher,
	maxUpload, defaultQuota int64,
) *Manager {
	return &Manager{
		workspaces:   workspaces,
		folders:      folders,
		files:        files,
		store:        store,
		cipher:       cipher,
		maxUpload:    maxUpload,
		defaultQuota: defaultQuota,
	}
}

// EnsureWorkspace returns the principal's workspace in the module, creating
// it on first use. Idempotent: marker writes overwrite and a concurrent
// create resolves to the winner's record.
func (m *Manager) EnsureWorkspace(ctx context.Context, p Principal, module string, quotaBytes int64) (*Workspace, error) {
	prefix, err := ResolvePrefix(module, p.Role, p.ID, "", "")
	if err != nil {
		return nil, err
	}

	existing, err := m.workspaces.GetByPrincipal(ctx, p.ID, module)
	if err == nil {
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	for _, sub := range WorkspaceSubfolders {
		key := prefix + "/" + sub + "/" + markerName
		if err := m.store.Put(ctx, key, nil, blobstore.Metadata{"marker": "true"}); err != nil {
			return nil, fmt.Errorf("write workspace marker: %w", err)
		}
	}

	if quotaBytes <= 0 {
		quotaBytes = m.defaultQuota
	}
	ws := &Workspace{
		PrincipalID: p.ID,
		Module:      module,
		PathPrefix:  prefix,
		QuotaBytes:  quotaBytes,
		Status:      WorkspaceActive,
	}
	if err := m.workspaces.Create(ctx, ws); err != nil {
		if IsUniqueViolation(err) {
			// Concurrent caller won the race; their workspace is ours too.
			return m.workspaces.GetByPrincipal(ctx, p.ID, module)
		}
		return nil, err
	}
	return ws, nil
}

// CreateFolder creates the subject folder under the responsible principal's
// workspace: category markers, the encrypted folder index object, then the
// record. The index write is idempotent, so a partial failure is retried
// from scratch with the same subject id; a concurrent duplicate converges on
// the first writer's record.
func (m *Manager) CreateFolder(ctx context.Context, responsible Principal, subjectID, module string) (*Folder, error) {
	if subjectID == "" {
		subjectID = uuid.NewString()
	}

	if existing, err := m.folders.GetBySubject(ctx, subjectID, module); err == nil {
		return existing, nil
	} else if err != ErrNotFound {
		return nil, err
	}

	prefix, err := ResolvePrefix(module, responsible.Role, responsible.ID, subjectID, "")
	if err != nil {
		return nil, err
	}

	for _, cat := range FolderCategories {
		key := prefix + "/" + cat + "/" + markerName
		if err := m.store.Put(ctx, key, nil, blobstore.Metadata{"marker": "true"}); err != nil {
			return nil, fmt.Errorf("write category marker: %w", err)
		}
	}

	index := FolderIndex{
		SubjectID:     subjectID,
		ResponsibleID: responsible.ID,
		Module:        module,
		CreatedAt:     time.Now().UTC(),
		Categories:    FolderCategories,
	}
	raw, err := json.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("marshal folder index: %w", err)
	}
	sealed, checksum, err := m.cipher.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("seal folder index: %w", err)
	}
	indexKey := prefix + "/" + folderIndexName
	meta := blobstore.Metadata{
		"checksum": checksum,
		"key-id":   m.cipher.KeyID(),
	}
	if err := m.store.Put(ctx, indexKey, sealed, meta); err != nil {
		return nil, fmt.Errorf("write folder index: %w", err)
	}

	folder := &Folder{
		SubjectID:     subjectID,
		Module:        module,
		PathPrefix:    prefix,
		ResponsibleID: responsible.ID,
		AssignedID:    responsible.ID,
		Status:        FolderActive,
		IndexKey:      indexKey,
	}
	if err := m.folders.Create(ctx, folder); err != nil {
		if IsUniqueViolation(err) {
			return m.folders.GetBySubject(ctx, subjectID, module)
		}
		return nil, err
	}
	return folder, nil
}

// UploadResult carries the new record plus the advisory quota flag.
type UploadResult struct {
	Record       *FileRecord
	QuotaWarning bool
}

// UploadFile seals the content and stores it, then records metadata and
// bumps the workspace usage counter. Fail closed: a store failure leaves no
// record and no usage update behind.
func (m *Manager) UploadFile(ctx context.Context, p Principal, folder *Folder, ws *Workspace, content []byte, filename, category, accessLevel string) (*UploadResult, error) {
	if !ValidCategory(category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	size := int64(len(content))
	if size > m.maxUpload {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrPayloadTooLarge, size, m.maxUpload)
	}
	if accessLevel == "" {
		accessLevel = AccessRestricted
	}

	contentType := http.DetectContentType(content)
	contentType = strings.Split(contentType, ";")[0]

	ext := path.Ext(filename)
	objectKey := folder.PathPrefix + "/" + category + "/" + uuid.NewString() + ext

	sealed, checksum, err := m.cipher.Seal(content)
	if err != nil {
		return nil, fmt.Errorf("seal payload: %w", err)
	}
	// Quota accounting is in stored bytes: the sealed blob, nonce and tag
	// included, is what actually occupies the bucket.
	storedSize := int64(len(sealed))

	now := time.Now().UTC()
	meta := blobstore.Metadata{
		"uploader":    p.ID,
		"category":    category,
		"checksum":    checksum,
		"key-id":      m.cipher.KeyID(),
		"filename":    filename,
		"uploaded-at": now.Format(time.RFC3339),
	}
	if err := m.store.Put(ctx, objectKey, sealed, meta); err != nil {
		return nil, fmt.Errorf("store payload: %w", err)
	}

	if ws != nil {
		if err := m.workspaces.AddUsage(ctx, ws.ID, storedSize); err != nil {
			return nil, fmt.Errorf("update usage: %w", err)
		}
	}

	record := &FileRecord{
		FolderID:    folder.ID,
		Name:        filename,
		Category:    category,
		ObjectKey:   objectKey,
		SizeBytes:   size,
		StoredBytes: storedSize,
		ContentType: contentType,
		Checksum:    checksum,
		Encrypted:   true,
		KeyID:       m.cipher.KeyID(),
		AccessLevel: accessLevel,
		UploaderID:  p.ID,
		Status:      FileUploaded,
		UploadedAt:  now,
	}
	if err := m.files.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist file record: %w", err)
	}

	warning := ws != nil && ws.UsageBytes+storedSize > ws.QuotaBytes
	return &UploadResult{Record: record, QuotaWarning: warning}, nil
}

// DownloadFile fetches and opens the sealed object. On an integrity failure
// the record's last-accessed timestamp is left untouched and the stored
// object is preserved for forensics.
func (m *Manager) DownloadFile(ctx context.Context, folder *Folder, fileID uuid.UUID) (*FileRecord, []byte, error) {
	record, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if record.FolderID != folder.ID || record.Status == FileDeleted {
		return nil, nil, ErrNotFound
	}

	obj, err := m.store.Get(ctx, record.ObjectKey)
	if err != nil {
		return record, nil, fmt.Errorf("fetch payload: %w", err)
	}

	plaintext := obj.Data
	if record.Encrypted {
		plaintext, err = m.cipher.Open(obj.Data, record.Checksum)
		if err != nil {
			return record, nil, err
		}
	}

	now := time.Now().UTC()
	if err := m.files.TouchAccessed(ctx, record.ID, now); err == nil {
		record.LastAccessedAt = &now
	}
	return record, plaintext, nil
}

// ListFiles merges the live store listing with local records. Placeholder
// markers and the folder index are excluded. Objects with no local record
// are still listed but flagged degraded, so callers can tell a full summary
// from one synthesized out of store metadata alone.
func (m *Manager) ListFiles(ctx context.Context, folder *Folder, category string) ([]FileSummary, error) {
	if category != "" && !ValidCategory(category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	prefix := folder.PathPrefix + "/"
	if category != "" {
		prefix += category + "/"
	}

	objects, err := m.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	records, err := m.files.ListByFolder(ctx, folder.ID, category)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*FileRecord, len(records))
	for i := range records {
		byKey[records[i].ObjectKey] = &records[i]
	}

	var out []FileSummary
	for _, obj := range objects {
		base := path.Base(obj.Key)
		if base == markerName || base == folderIndexName {
			continue
		}
		if rec, ok := byKey[obj.Key]; ok {
			if rec.Status == FileDeleted {
				continue
			}
			out = append(out, FileSummary{
				FileID:      rec.ID.String(),
				Name:        rec.Name,
				Category:    rec.Category,
				SizeBytes:   rec.SizeBytes,
				ContentType: rec.ContentType,
				AccessLevel: rec.AccessLevel,
				Status:      rec.Status,
				ModifiedAt:  rec.UploadedAt,
			})
			continue
		}
		out = append(out, FileSummary{
			Name:       base,
			Category:   categoryFromKey(folder.PathPrefix, obj.Key),
			SizeBytes:  obj.Size,
			ModifiedAt: obj.LastModified,
			Degraded:   true,
		})
	}
	return out, nil
}

// DeleteFile flips the record to deleted; the stored object stays in place.
func (m *Manager) DeleteFile(ctx context.Context, folder *Folder, fileID uuid.UUID) (*FileRecord, error) {
	record, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if record.FolderID != folder.ID || record.Status == FileDeleted {
		return nil, ErrNotFound
	}
	if err := m.files.UpdateStatus(ctx, record.ID, FileDeleted); err != nil {
		return nil, err
	}
	record.Status = FileDeleted
	return record, nil
}

// PurgeFile removes the underlying object and the record, and releases the
// workspace usage the file held.
func (m *Manager) PurgeFile(ctx context.Context, folder *Folder, ws *Workspace, fileID uuid.UUID) (*FileRecord, error) {
	record, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if record.FolderID != folder.ID {
		return nil, ErrNotFound
	}
	if err := m.store.Delete(ctx, record.ObjectKey); err != nil {
		return nil, fmt.Errorf("delete payload: %w", err)
	}
	if err := m.files.HardDelete(ctx, record.ID); err != nil {
		return nil, err
	}
	if ws != nil {
		if err := m.workspaces.AddUsage(ctx, ws.ID, -record.StoredBytes); err != nil {
			return nil, fmt.Errorf("update usage: %w", err)
		}
	}
	return record, nil
}

// ArchiveFolder marks the folder archived. Folders are never deleted.
func (m *Manager) ArchiveFolder(ctx context.Context, folder *Folder) error {
	return m.folders.UpdateStatus(ctx, folder.ID, FolderArchived)
}

// ReassignFolder moves the assigned-principal pointer. The responsible
// principal keeps access; delegation is handled through grants.
func (m *Manager) ReassignFolder(ctx context.Context, folder *Folder, assignedID string) error {
	return m.folders.Reassign(ctx, folder.ID, assignedID)
}

func categoryFromKey(folderPrefix, key string) string {
	rest := strings.TrimPrefix(key, folderPrefix+"/")
	if i := strings.IndexByte(rest, '/'); i > 0 {
		return rest[:i]
	}
	return ""
}
