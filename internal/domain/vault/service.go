package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medvault/internal/domain/audit"
	"medvault/internal/pkg/blobstore"
	"medvault/internal/pkg/envelope"
)

// Recorder is the audit sink the service reports to. Satisfied by
// audit.Writer; tests capture events with a slice-backed fake.
type Recorder interface {
	Record(ev audit.Event)
}

// Service is the public entry point of the vault. Every operation runs the
// same sequence: load target, evaluate the access table, audit the decision,
// then act. Nothing touches the blob store before an authorization check has
// been recorded.
type Service struct {
	mgr        *Manager
	workspaces WorkspaceRepository
	folders    FolderRepository
	grants     GrantRepository
	audit      Recorder
}

func NewService(mgr *Manager, workspaces WorkspaceRepository, folders FolderRepository, grants GrantRepository, rec Recorder) *Service {
	return &Service{
		mgr:        mgr,
		workspaces: workspaces,
		folders:    folders,
		grants:     grants,
		audit:      rec,
	}
}

// EnsureWorkspace creates or returns the caller's workspace in the module.
func (s *Service) EnsureWorkspace(ctx context.Context, p Principal, module string, quotaBytes int64) (*Workspace, error) {
	target := Target{Module: module}
	if existing, err := s.workspaces.GetByPrincipal(ctx, p.ID, module); err == nil {
		target.Workspace = existing
	} else {
		// Not created yet: authorize against the workspace the caller is
		// about to own.
		target.Workspace = &Workspace{PrincipalID: p.ID, Module: module, Status: WorkspaceActive}
	}

	dec := s.authorize(ctx, p, OpWrite, target)
	if !dec.Allowed {
		s.record(p, audit.ActionWorkspaceEnsure, module, "", dec, errDenied)
		return nil, s.deny(dec)
	}

	ws, err := s.mgr.EnsureWorkspace(ctx, p, module, quotaBytes)
	s.record(p, audit.ActionWorkspaceEnsure, module, "", dec, err)
	if err != nil {
		return nil, s.translate(err)
	}
	return ws, nil
}

// CreateFolder creates (or idempotently returns) the subject folder under
// the caller's workspace. Requires admin rights on the workspace. The
// decision is evaluated and recorded before the workspace is ensured, so a
// denied caller leaves no workspace record and no marker objects behind.
func (s *Service) CreateFolder(ctx context.Context, p Principal, module, subjectID string) (*Folder, error) {
	target := Target{Module: module}
	if existing, err := s.workspaces.GetByPrincipal(ctx, p.ID, module); err == nil {
		target.Workspace = existing
	} else {
		target.Workspace = &Workspace{PrincipalID: p.ID, Module: module, Status: WorkspaceActive}
	}

	dec := s.authorize(ctx, p, OpAdmin, target)
	if !dec.Allowed {
		s.record(p, audit.ActionFolderCreate, module, subjectID, dec, errDenied)
		return nil, s.deny(dec)
	}

	if _, err := s.mgr.EnsureWorkspace(ctx, p, module, 0); err != nil {
		s.record(p, audit.ActionFolderCreate, module, subjectID, dec, err)
		return nil, s.translate(err)
	}

	folder, err := s.mgr.CreateFolder(ctx, p, subjectID, module)
	if err == nil {
		subjectID = folder.SubjectID
	}
	s.record(p, audit.ActionFolderCreate, module, subjectID, dec, err)
	if err != nil {
		return nil, s.translate(err)
	}
	return folder, nil
}

// UploadFile stores one sealed payload into the folder.
func (s *Service) UploadFile(ctx context.Context, p Principal, folderID uuid.UUID, content []byte, filename, category, accessLevel string) (*UploadResult, error) {
	folder, ws, err := s.loadFolder(ctx, folderID)
	if err != nil {
		s.record(p, audit.ActionFileUpload, "", "", Decision{}, err)
		return nil, s.translate(err)
	}

	dec := s.authorize(ctx, p, OpWrite, Target{Module: folder.Module, Folder: folder, Workspace: ws})
	if !dec.Allowed {
		s.record(p, audit.ActionFileUpload, folder.Module, folder.SubjectID, dec, errDenied)
		return nil, s.deny(dec)
	}

	res, err := s.mgr.UploadFile(ctx, p, folder, ws, content, filename, category, accessLevel)
	s.recordDetail(p, audit.ActionFileUpload, folder.Module, folder.SubjectID, dec, err, map[string]any{
		"filename": filename,
		"category": category,
		"bytes":    len(content),
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return res, nil
}

// DownloadFile returns the decrypted content of one file.
func (s *Service) DownloadFile(ctx context.Context, p Principal, folderID, fileID uuid.UUID) (*FileRecord, []byte, error) {
	folder, ws, err := s.loadFolder(ctx, folderID)
	if err != nil {
		s.record(p, audit.ActionFileDownload, "", "", Decision{}, err)
		return nil, nil, s.translate(err)
	}

	dec := s.authorize(ctx, p, OpRead, Target{Module: folder.Module, Folder: folder, Workspace: ws})
	if !dec.Allowed {
		s.record(p, audit.ActionFileDownload, folder.Module, folder.SubjectID, dec, errDenied)
		return nil, nil, s.deny(dec)
	}

	record, plaintext, err := s.mgr.DownloadFile(ctx, folder, fileID)
	if errors.Is(err, envelope.ErrIntegrity) {
		// Tamper evidence: record a dedicated high-risk entry on top of the
		// operation's own failure entry.
		s.audit.Record(audit.Event{
			Actor:     p.ID,
			Action:    audit.ActionIntegrityFail,
			Module:    folder.Module,
			SubjectID: folder.SubjectID,
			Outcome:   audit.OutcomeFailure,
			Risk:      audit.RiskHigh,
			Detail:    map[string]any{"file_id": fileID.String()},
			Origin:    p.Origin,
		})
	}
	s.recordDetail(p, audit.ActionFileDownload, folder.Module, folder.SubjectID, dec, err, map[string]any{
		"file_id": fileID.String(),
	})
	if err != nil {
		return nil, nil, s.translate(err)
	}
	return record, plaintext, nil
}

// ListFiles lists the folder's content, optionally filtered by category.
func (s *Service) ListFiles(ctx context.Context, p Principal, folderID uuid.UUID, category string) ([]FileSummary, error) {
	folder, ws, err := s.loadFolder(ctx, folderID)
	if err != nil {
		s.record(p, audit.ActionFileList, "", "", Decision{}, err)
		return nil, s.translate(err)
	}

	dec := s.authorize(ctx, p, OpRead, Target{Module: folder.Module, Folder: folder, Workspace: ws})
	if !dec.Allowed {
		s.record(p, audit.ActionFileList, folder.Module, folder.SubjectID, dec, errDenied)
		return nil, s.deny(dec)
	}

	summaries, err := s.mgr.ListFiles(ctx, folder, category)
	s.record(p, audit.ActionFileList, folder.Module, folder.SubjectID, dec, err)
	if err != nil {
		return nil, s.translate(err)
	}
	return summaries, nil
}

// DeleteFile logically deletes a file; with purge the stored object and the
// record are removed for good.
func (s *Service) DeleteFile(ctx context.Context, p Principal, folderID, fileID uuid.UUID, purge bool) error {
	action := audit.ActionFileDelete
	if purge {
		action = audit.ActionFilePurge
	}

	folder, ws, err := s.loadFolder(ctx, folderID)
	if err != nil {
		s.record(p, action, "", "", Decision{}, err)
		return s.translate(err)
	}

	dec := s.authorize(ctx, p, OpDelete, Target{Module: folder.Module, Folder: folder, Workspace: ws})
	if !dec.Allowed {
		s.record(p, action, folder.Module, folder.SubjectID, dec, errDenied)
		return s.deny(dec)
	}

	if purge {
		_, err = s.mgr.PurgeFile(ctx, folder, ws, fileID)
	} else {
		_, err = s.mgr.DeleteFile(ctx, folder, fileID)
	}
	s.recordDetail(p, action, folder.Module, folder.SubjectID, dec, err, map[string]any{
		"file_id": fileID.String(),
	})
	return s.translate(err)
}

// ArchiveFolder marks the folder archived when the subject's engagement ends.
func (s *Service) ArchiveFolder(ctx context.Context, p Principal, folderID uuid.UUID) error {
	folder, ws, err := s.loadFolder(ctx, folderID)
	if err != nil {
		s.record(p, audit.ActionFolderArchive, "", "", Decision{}, err)
		return s.translate(err)
	}

	dec := s.authorize(ctx, p, OpAdmin, Target{Module: folder.Module, Folder: folder, Workspace: ws})
	if !dec.Allowed {
		s.record(p, audit.ActionFolderArchive, folder.Module, folder.SubjectID, dec, errDenied)
		return s.deny(dec)
	}

	err = s.mgr.ArchiveFolder(ctx, folder)
	s.record(p, audit.ActionFolderArchive, folder.Module, folder.SubjectID, dec, err)
	return s.translate(err)
}

// ReassignFolder points the folder's assigned principal elsewhere. The
// responsible principal keeps historical access.
func (s *Service) ReassignFolder(ctx context.Context, p Principal, folderID uuid.UUID, assignedID string) error {
	folder, ws, err := s.loadFolder(ctx, folderID)
	if err != nil {
		s.record(p, audit.ActionFolderReassign, "", "", Decision{}, err)
		return s.translate(err)
	}

	dec := s.authorize(ctx, p, OpAdmin, Target{Module: folder.Module, Folder: folder, Workspace: ws})
	if !dec.Allowed {
		s.record(p, audit.ActionFolderReassign, folder.Module, folder.SubjectID, dec, errDenied)
		return s.deny(dec)
	}

	err = s.mgr.ReassignFolder(ctx, folder, assignedID)
	s.recordDetail(p, audit.ActionFolderReassign, folder.Module, folder.SubjectID, dec, err, map[string]any{
		"assigned_id": assignedID,
	})
	return s.translate(err)
}

// GrantAccess materializes a delegated permission on a folder. The grant can
// never broaden access: the grantor must itself hold every requested
// operation at grant time, and patients cannot delegate.
func (s *Service) GrantAccess(ctx context.Context, grantor Principal, folderID uuid.UUID, granteeID string, ops []Operation, expiresAt *time.Time) (*AccessGrant, error) {
	folder, ws, err := s.loadFolder(ctx, folderID)
	if err != nil {
		s.record(grantor, audit.ActionGrantCreate, "", "", Decision{}, err)
		return nil, s.translate(err)
	}
	target := Target{Module: folder.Module, Folder: folder, Workspace: ws}

	if len(ops) == 0 || grantor.Role == RolePatient {
		dec := Decision{Rule: 5, Reason: "patients cannot delegate"}
		s.record(grantor, audit.ActionGrantCreate, folder.Module, folder.SubjectID, dec, errDenied)
		return nil, ErrUnauthorized
	}

	var dec Decision
	for _, op := range ops {
		dec = s.authorize(ctx, grantor, op, target)
		if !dec.Allowed {
			s.record(grantor, audit.ActionGrantCreate, folder.Module, folder.SubjectID, dec, ErrGrantExceedsGrantor)
			return nil, fmt.Errorf("%w: %s", ErrGrantExceedsGrantor, op)
		}
	}

	fid := folder.ID
	grant := &AccessGrant{
		FolderID:   &fid,
		Module:     folder.Module,
		GranteeID:  granteeID,
		Operations: OperationsList(ops),
		GrantedBy:  grantor.ID,
		ExpiresAt:  expiresAt,
	}
	err = s.grants.Create(ctx, grant)
	s.recordDetail(grantor, audit.ActionGrantCreate, folder.Module, folder.SubjectID, dec, err, map[string]any{
		"grantee":    granteeID,
		"operations": grant.Operations,
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return grant, nil
}

// RevokeGrant withdraws a delegated permission. Allowed for the grantor, a
// module admin, or a superadmin.
func (s *Service) RevokeGrant(ctx context.Context, p Principal, grantID uuid.UUID) error {
	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		s.record(p, audit.ActionGrantRevoke, "", "", Decision{}, err)
		return s.translate(err)
	}

	dec := Decision{Rule: 5, Reason: "not grantor or module admin"}
	switch {
	case p.Role == RoleSuperAdmin:
		dec = Decision{Allowed: true, Rule: 1, Reason: "superadmin bypass"}
	case p.Role == RoleAdmin && p.Module == grant.Module:
		dec = Decision{Allowed: true, Rule: 2, Reason: "module admin"}
	case p.ID == grant.GrantedBy:
		dec = Decision{Allowed: true, Rule: 3, Reason: "grantor"}
	}
	if !dec.Allowed {
		s.record(p, audit.ActionGrantRevoke, grant.Module, "", dec, errDenied)
		return ErrUnauthorized
	}

	err = s.grants.Revoke(ctx, grantID)
	s.recordDetail(p, audit.ActionGrantRevoke, grant.Module, "", dec, err, map[string]any{
		"grant_id": grantID.String(),
		"grantee":  grant.GranteeID,
	})
	return s.translate(err)
}

// errDenied only marks audit outcome for denied decisions; callers receive
// ErrUnauthorized through deny().
var errDenied = errors.New("denied")

func (s *Service) deny(dec Decision) error {
	return fmt.Errorf("%w: rule %d: %s", ErrUnauthorized, dec.Rule, dec.Reason)
}

// authorize loads the principal's active grants and evaluates the decision
// table. Grant lookup failures degrade to "no grants": relationship rules
// still apply, extra delegated access does not.
func (s *Service) authorize(ctx context.Context, p Principal, op Operation, t Target) Decision {
	grants, err := s.grants.ActiveForPrincipal(ctx, p.ID, t.Module)
	if err != nil {
		grants = nil
	}
	return Authorize(p, op, t, grants, time.Now().UTC())
}

func (s *Service) loadFolder(ctx context.Context, folderID uuid.UUID) (*Folder, *Workspace, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, nil, err
	}
	// The folder lives under the responsible principal's workspace; absence
	// is tolerated (suspension checks just have nothing to check).
	ws, err := s.workspaces.GetByPrincipal(ctx, folder.ResponsibleID, folder.Module)
	if err != nil {
		ws = nil
	}
	return folder, ws, nil
}

func (s *Service) record(p Principal, action, module, subjectID string, dec Decision, err error) {
	s.recordDetail(p, action, module, subjectID, dec, err, nil)
}

func (s *Service) recordDetail(p Principal, action, module, subjectID string, dec Decision, err error, extra map[string]any) {
	outcome := audit.OutcomeSuccess
	if err != nil {
		outcome = audit.OutcomeFailure
	}
	detail := map[string]any{
		"rule":   dec.Rule,
		"reason": dec.Reason,
	}
	for k, v := range extra {
		detail[k] = v
	}
	if err != nil && !errors.Is(err, errDenied) {
		detail["error"] = err.Error()
	}
	s.audit.Record(audit.Event{
		Actor:     p.ID,
		Action:    action,
		Module:    module,
		SubjectID: subjectID,
		Outcome:   outcome,
		Risk:      audit.ClassifyRisk(action, dec.Rule == 1),
		Detail:    detail,
		Origin:    p.Origin,
	})
}

// translate folds infrastructure errors into the caller-facing taxonomy.
// Only the Service performs this mapping.
func (s *Service) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPayloadTooLarge),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrUnknownRole),
		errors.Is(err, ErrGrantExceedsGrantor):
		return err
	case errors.Is(err, envelope.ErrIntegrity):
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	case errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, blobstore.ErrUnavailable), errors.Is(err, blobstore.ErrAccessDenied):
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	default:
		return err
	}
}
