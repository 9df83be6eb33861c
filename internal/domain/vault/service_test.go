package vault

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"medvault/internal/domain/audit"
	"medvault/internal/pkg/blobstore"
	"medvault/internal/pkg/envelope"
)

const (
	testModule    = "cardiology"
	testMaxUpload = 4 << 20
	testQuota     = 3 << 20
)

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureRecorder) Record(ev audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureRecorder) all() []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]audit.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *captureRecorder) last() audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func (c *captureRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type testEnv struct {
	svc        *Service
	store      *blobstore.MemoryStore
	rec        *captureRecorder
	cipher     *envelope.Cipher
	workspaces WorkspaceRepository
	folders    FolderRepository
	files      FileRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	workspaces := NewWorkspaceRepository(db)
	folders := NewFolderRepository(db)
	files := NewFileRepository(db)
	grants := NewGrantRepository(db)

	store := blobstore.NewMemory()
	key := bytes.Repeat([]byte{0x42}, envelope.KeySize)
	cipher, err := envelope.New(key, "test-key-1")
	require.NoError(t, err)

	mgr := NewManager(workspaces, folders, files, store, cipher, testMaxUpload, testQuota)
	rec := &captureRecorder{}
	return &testEnv{
		svc:        NewService(mgr, workspaces, folders, grants, rec),
		store:      store,
		rec:        rec,
		cipher:     cipher,
		workspaces: workspaces,
		folders:    folders,
		files:      files,
	}
}

var (
	doctor  = Principal{ID: "dr-house", Role: RoleDoctor, Origin: "10.0.0.1"}
	nurse   = Principal{ID: "nurse-amy", Role: RoleNurse, Origin: "10.0.0.2"}
	patient = Principal{ID: "pt-300", Role: RolePatient, Origin: "10.0.0.3"}
)

func mustFolder(t *testing.T, env *testEnv, p Principal, subjectID string) *Folder {
	t.Helper()
	folder, err := env.svc.CreateFolder(context.Background(), p, testModule, subjectID)
	require.NoError(t, err)
	return folder
}

func mustUpload(t *testing.T, env *testEnv, p Principal, folderID uuid.UUID, content []byte, name, category string) *UploadResult {
	t.Helper()
	res, err := env.svc.UploadFile(context.Background(), p, folderID, content, name, category, "")
	require.NoError(t, err)
	return res
}

func TestDoctorWorkflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ws, err := env.svc.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)
	assert.Equal(t, "healthcare/cardiology/staff/doctors/dr-house", ws.PathPrefix)
	assert.Equal(t, int64(testQuota), ws.QuotaBytes)
	for _, sub := range WorkspaceSubfolders {
		assert.True(t, env.store.Exists(ws.PathPrefix+"/"+sub+"/.keep"), sub)
	}

	folder := mustFolder(t, env, doctor, "pt-300")
	assert.Equal(t, doctor.ID, folder.ResponsibleID)
	assert.True(t, env.store.Exists(folder.PathPrefix+"/folder_index.json"))

	scan := bytes.Repeat([]byte{0xD1}, 2<<20)
	res := mustUpload(t, env, doctor, folder.ID, scan, "scan1.dcm", "imaging")
	assert.False(t, res.QuotaWarning)
	assert.Equal(t, int64(len(scan)), res.Record.SizeBytes)
	assert.True(t, res.Record.Encrypted)

	// The stored object is sealed, never the plaintext.
	obj, err := env.store.Get(ctx, res.Record.ObjectKey)
	require.NoError(t, err)
	assert.NotEqual(t, scan, obj.Data)

	record, got, err := env.svc.DownloadFile(ctx, doctor, folder.ID, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, scan, got)
	assert.NotNil(t, record.LastAccessedAt)

	ws, err = env.workspaces.GetByID(ctx, ws.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ws.UsageBytes, int64(2<<20))

	// A second 2 MiB upload pushes past the 3 MiB quota; advisory only.
	res = mustUpload(t, env, doctor, folder.ID, scan, "scan2.dcm", "imaging")
	assert.True(t, res.QuotaWarning)
}

func TestEnsureWorkspaceIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)
	second, err := env.svc.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateFolderIdempotent(t *testing.T) {
	env := newTestEnv(t)

	first := mustFolder(t, env, doctor, "pt-300")
	second := mustFolder(t, env, doctor, "pt-300")
	assert.Equal(t, first.ID, second.ID)

	for _, cat := range FolderCategories {
		assert.True(t, env.store.Exists(first.PathPrefix+"/"+cat+"/.keep"), cat)
	}
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")

	_, err := env.svc.UploadFile(ctx, doctor, folder.ID, []byte("x"), "a.txt", "selfies", "")
	assert.True(t, errors.Is(err, ErrInvalidCategory))

	huge := make([]byte, testMaxUpload+1)
	_, err = env.svc.UploadFile(ctx, doctor, folder.ID, huge, "big.bin", "imaging", "")
	assert.True(t, errors.Is(err, ErrPayloadTooLarge))
}

func TestUploadDownloadSizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")

	for _, content := range [][]byte{
		{},
		{0x01},
		bytes.Repeat([]byte{0xAB}, testMaxUpload),
	} {
		res := mustUpload(t, env, doctor, folder.ID, content, "f.bin", "lab_results")
		_, got, err := env.svc.DownloadFile(ctx, doctor, folder.ID, res.Record.ID)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}
}

func TestPatientSelfService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, patient.ID)
	res := mustUpload(t, env, doctor, folder.ID, []byte("lab panel"), "panel.pdf", "lab_results")

	// Patients read and write their own subject folder.
	_, got, err := env.svc.DownloadFile(ctx, patient, folder.ID, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("lab panel"), got)

	_, err = env.svc.UploadFile(ctx, patient, folder.ID, []byte("my consent"), "consent.pdf", "consent_forms", "")
	require.NoError(t, err)

	summaries, err := env.svc.ListFiles(ctx, patient, folder.ID, "")
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	// Delete stays off limits, and the file survives the attempt.
	err = env.svc.DeleteFile(ctx, patient, folder.ID, res.Record.ID, false)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, got, err = env.svc.DownloadFile(ctx, patient, folder.ID, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("lab panel"), got)
}

func TestPatientForeignFolderDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	res := mustUpload(t, env, doctor, folder.ID, []byte("private"), "note.txt", "progress_notes")

	other := Principal{ID: "pt-999", Role: RolePatient, Origin: "10.0.0.9"}

	_, _, err := env.svc.DownloadFile(ctx, other, folder.ID, res.Record.ID)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, err = env.svc.ListFiles(ctx, other, folder.ID, "")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, err = env.svc.UploadFile(ctx, other, folder.ID, []byte("x"), "x.txt", "consent_forms", "")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestIntegrityFailureOnDownload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	res := mustUpload(t, env, doctor, folder.ID, []byte("original content"), "r.txt", "medical_records")

	require.True(t, env.store.Corrupt(res.Record.ObjectKey))

	_, _, err := env.svc.DownloadFile(ctx, doctor, folder.ID, res.Record.ID)
	assert.True(t, errors.Is(err, ErrIntegrity))

	// A dedicated high-risk tamper entry accompanies the failed download.
	var tamper *audit.Event
	for _, ev := range env.rec.all() {
		if ev.Action == audit.ActionIntegrityFail {
			ev := ev
			tamper = &ev
		}
	}
	require.NotNil(t, tamper)
	assert.Equal(t, audit.RiskHigh, tamper.Risk)
	assert.Equal(t, audit.OutcomeFailure, tamper.Outcome)

	// No successful access happened, so the timestamp stays unset.
	record, err := env.files.GetByID(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Nil(t, record.LastAccessedAt)
}

func TestStorageOutageOnUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	ws, err := env.svc.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)
	usageBefore := ws.UsageBytes

	env.store.FailNext(blobstore.ErrUnavailable)
	_, err = env.svc.UploadFile(ctx, doctor, folder.ID, []byte("payload"), "p.txt", "medical_records", "")
	assert.True(t, errors.Is(err, ErrStorageUnavailable))

	// Fail closed: no record, no usage movement.
	summaries, err := env.svc.ListFiles(ctx, doctor, folder.ID, "")
	require.NoError(t, err)
	assert.Empty(t, summaries)
	ws, err = env.workspaces.GetByID(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, usageBefore, ws.UsageBytes)
}

func TestDeleteAndPurge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	res := mustUpload(t, env, doctor, folder.ID, []byte("to remove"), "d.txt", "medical_records")

	// Logical delete keeps the object but hides the file.
	require.NoError(t, env.svc.DeleteFile(ctx, doctor, folder.ID, res.Record.ID, false))
	assert.True(t, env.store.Exists(res.Record.ObjectKey))
	_, _, err := env.svc.DownloadFile(ctx, doctor, folder.ID, res.Record.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	summaries, err := env.svc.ListFiles(ctx, doctor, folder.ID, "")
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// Purge removes the object and releases the held usage.
	res2 := mustUpload(t, env, doctor, folder.ID, []byte("gone for good"), "g.txt", "medical_records")
	ws, err := env.svc.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)
	usageBefore := ws.UsageBytes

	require.NoError(t, env.svc.DeleteFile(ctx, doctor, folder.ID, res2.Record.ID, true))
	assert.False(t, env.store.Exists(res2.Record.ObjectKey))
	_, err = env.files.GetByID(ctx, res2.Record.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	ws, err = env.workspaces.GetByID(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, usageBefore-res2.Record.StoredBytes, ws.UsageBytes)
}

func TestUsageCountsStoredBytes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	res := mustUpload(t, env, doctor, folder.ID, []byte("twelve bytes"), "n.txt", "progress_notes")

	// The sealed blob carries nonce and tag on top of the plaintext, and that
	// is what occupies the bucket.
	obj, err := env.store.Get(ctx, res.Record.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, int64(len(obj.Data)), res.Record.StoredBytes)
	assert.Greater(t, res.Record.StoredBytes, res.Record.SizeBytes)

	ws, err := env.workspaces.GetByPrincipal(ctx, doctor.ID, testModule)
	require.NoError(t, err)
	assert.Equal(t, res.Record.StoredBytes, ws.UsageBytes)

	// Purge releases exactly what the upload charged.
	require.NoError(t, env.svc.DeleteFile(ctx, doctor, folder.ID, res.Record.ID, true))
	ws, err = env.workspaces.GetByID(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ws.UsageBytes)
}

func TestDelegatedGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	res := mustUpload(t, env, doctor, folder.ID, []byte("shared"), "s.txt", "treatment_plans")

	// Without a grant the nurse is a stranger to the folder.
	_, _, err := env.svc.DownloadFile(ctx, nurse, folder.ID, res.Record.ID)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	grant, err := env.svc.GrantAccess(ctx, doctor, folder.ID, nurse.ID, []Operation{OpRead}, nil)
	require.NoError(t, err)

	_, got, err := env.svc.DownloadFile(ctx, nurse, folder.ID, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared"), got)

	// The grant covers read only.
	_, err = env.svc.UploadFile(ctx, nurse, folder.ID, []byte("x"), "x.txt", "treatment_plans", "")
	assert.True(t, errors.Is(err, ErrUnauthorized))

	// A grantee cannot hand out more than it holds.
	_, err = env.svc.GrantAccess(ctx, nurse, folder.ID, "nurse-ben", []Operation{OpDelete}, nil)
	assert.True(t, errors.Is(err, ErrGrantExceedsGrantor))

	// Patients never delegate, not even on their own folder.
	_, err = env.svc.GrantAccess(ctx, patient, folder.ID, "pt-friend", []Operation{OpRead}, nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	require.NoError(t, env.svc.RevokeGrant(ctx, doctor, grant.ID))
	_, _, err = env.svc.DownloadFile(ctx, nurse, folder.ID, res.Record.ID)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestSuspendedWorkspaceBlocksMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	res := mustUpload(t, env, doctor, folder.ID, []byte("pre-suspension"), "p.txt", "medical_records")

	ws, err := env.svc.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)
	require.NoError(t, env.workspaces.UpdateStatus(ctx, ws.ID, WorkspaceSuspended))

	_, err = env.svc.UploadFile(ctx, doctor, folder.ID, []byte("x"), "x.txt", "medical_records", "")
	assert.True(t, errors.Is(err, ErrUnauthorized))

	// Reads keep working so care is not interrupted.
	_, got, err := env.svc.DownloadFile(ctx, doctor, folder.ID, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("pre-suspension"), got)
}

func TestArchiveAndReassign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	res := mustUpload(t, env, doctor, folder.ID, []byte("history"), "h.txt", "discharge_summaries")

	// Reassignment moves the active pointer; the responsible keeps access.
	require.NoError(t, env.svc.ReassignFolder(ctx, doctor, folder.ID, "dr-wilson"))
	wilson := Principal{ID: "dr-wilson", Role: RoleDoctor, Origin: "10.0.0.4"}
	_, _, err := env.svc.DownloadFile(ctx, wilson, folder.ID, res.Record.ID)
	require.NoError(t, err)
	_, _, err = env.svc.DownloadFile(ctx, doctor, folder.ID, res.Record.ID)
	require.NoError(t, err)

	// The nurse cannot archive, the responsible doctor can.
	err = env.svc.ArchiveFolder(ctx, nurse, folder.ID)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	require.NoError(t, env.svc.ArchiveFolder(ctx, doctor, folder.ID))
}

func TestDegradedListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := mustFolder(t, env, doctor, "pt-300")
	mustUpload(t, env, doctor, folder.ID, []byte("tracked"), "t.txt", "imaging")

	// An object written outside the vault has no local record.
	orphanKey := folder.PathPrefix + "/imaging/orphan.bin"
	require.NoError(t, env.store.Put(ctx, orphanKey, []byte("untracked"), nil))

	summaries, err := env.svc.ListFiles(ctx, doctor, folder.ID, "imaging")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	var degraded, full int
	for _, s := range summaries {
		if s.Degraded {
			degraded++
			assert.Empty(t, s.FileID)
			assert.Equal(t, "imaging", s.Category)
		} else {
			full++
			assert.NotEmpty(t, s.FileID)
		}
	}
	assert.Equal(t, 1, degraded)
	assert.Equal(t, 1, full)
}

func TestCreateFolderDeniedLeavesNoState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateFolder(ctx, patient, testModule, patient.ID)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	// Denied before anything was ensured: no workspace record, no markers.
	_, err = env.workspaces.GetByPrincipal(ctx, patient.ID, testModule)
	assert.True(t, errors.Is(err, ErrNotFound))

	prefix, err := ResolvePrefix(testModule, patient.Role, patient.ID, "", "")
	require.NoError(t, err)
	for _, sub := range WorkspaceSubfolders {
		assert.False(t, env.store.Exists(prefix+"/"+sub+"/.keep"), sub)
	}

	// The denial itself is still on the audit trail.
	ev := env.rec.last()
	assert.Equal(t, audit.ActionFolderCreate, ev.Action)
	assert.Equal(t, audit.OutcomeFailure, ev.Outcome)
}

// lostRaceFolders simulates a duplicate-create race: the first existence
// check misses because the competing writer had not committed yet, later
// reads see the committed row.
type lostRaceFolders struct {
	FolderRepository
	mu      sync.Mutex
	checked bool
}

func (r *lostRaceFolders) GetBySubject(ctx context.Context, subjectID, module string) (*Folder, error) {
	r.mu.Lock()
	first := !r.checked
	r.checked = true
	r.mu.Unlock()
	if first {
		return nil, ErrNotFound
	}
	return r.FolderRepository.GetBySubject(ctx, subjectID, module)
}

type lostRaceWorkspaces struct {
	WorkspaceRepository
	mu      sync.Mutex
	checked bool
}

func (r *lostRaceWorkspaces) GetByPrincipal(ctx context.Context, principalID, module string) (*Workspace, error) {
	r.mu.Lock()
	first := !r.checked
	r.checked = true
	r.mu.Unlock()
	if first {
		return nil, ErrNotFound
	}
	return r.WorkspaceRepository.GetByPrincipal(ctx, principalID, module)
}

func TestCreateFolderConvergesWhenInsertLosesRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	winner := &Folder{
		SubjectID:     "pt-300",
		Module:        testModule,
		PathPrefix:    "healthcare/cardiology/staff/doctors/dr-cuddy/patients/pt-300",
		ResponsibleID: "dr-cuddy",
		AssignedID:    "dr-cuddy",
		Status:        FolderActive,
	}
	require.NoError(t, env.folders.Create(ctx, winner))

	mgr := NewManager(env.workspaces, &lostRaceFolders{FolderRepository: env.folders}, env.files, env.store, env.cipher, testMaxUpload, testQuota)

	// The insert hits the (subject, module) unique index and resolves to the
	// winner's record instead of erroring or duplicating.
	got, err := mgr.CreateFolder(ctx, doctor, "pt-300", testModule)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
	assert.Equal(t, "dr-cuddy", got.ResponsibleID)
}

func TestEnsureWorkspaceConvergesWhenInsertLosesRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)

	mgr := NewManager(&lostRaceWorkspaces{WorkspaceRepository: env.workspaces}, env.folders, env.files, env.store, env.cipher, testMaxUpload, testQuota)

	got, err := mgr.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestEveryCallLeavesAnAuditEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before := env.rec.count()
	_, err := env.svc.EnsureWorkspace(ctx, doctor, testModule, 0)
	require.NoError(t, err)
	assert.Equal(t, before+1, env.rec.count())
	ev := env.rec.last()
	assert.Equal(t, audit.ActionWorkspaceEnsure, ev.Action)
	assert.Equal(t, audit.OutcomeSuccess, ev.Outcome)
	assert.Equal(t, doctor.ID, ev.Actor)
	assert.Equal(t, doctor.Origin, ev.Origin)

	folder := mustFolder(t, env, doctor, "pt-300")
	res := mustUpload(t, env, doctor, folder.ID, []byte("audited"), "a.txt", "medical_records")

	// Denials are recorded too, with the matched rule in the detail.
	before = env.rec.count()
	err = env.svc.DeleteFile(ctx, patient, folder.ID, res.Record.ID, false)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	require.Equal(t, before+1, env.rec.count())
	ev = env.rec.last()
	assert.Equal(t, audit.ActionFileDelete, ev.Action)
	assert.Equal(t, audit.OutcomeFailure, ev.Outcome)
	assert.Equal(t, audit.RiskHigh, ev.Risk)
	assert.Equal(t, 5, ev.Detail["rule"])

	// Superadmin bypasses are flagged high risk regardless of the action.
	before = env.rec.count()
	root := Principal{ID: "root-1", Role: RoleSuperAdmin, Origin: "10.0.0.100"}
	_, err = env.svc.ListFiles(ctx, root, folder.ID, "")
	require.NoError(t, err)
	require.Equal(t, before+1, env.rec.count())
	ev = env.rec.last()
	assert.Equal(t, audit.RiskHigh, ev.Risk)
	assert.Equal(t, audit.OutcomeSuccess, ev.Outcome)
}
