package rft

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rftdraft/internal/apperr"
	"rftdraft/internal/document"
	"rftdraft/internal/drive"
	"rftdraft/internal/gateway/config"
	blobrepo "rftdraft/internal/gateway/repository/blob"
	"rftdraft/internal/gateway/repository/task"
	"rftdraft/internal/llmclient"
	"rftdraft/internal/tender"
)

var pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")

const analysisJSON = `{"summary":"Office cleaning","legalRequirements":["WHS"],"operationalNeeds":[],` +
	`"estimationConsiderations":[],"keyCriteria":["Price"],"winThemes":["Local"]}`

type fakeDrive struct {
	mu      sync.Mutex
	files   map[string]drive.File
	created []string
	folders []string
	updates map[string]string
	failOn  string
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: map[string]drive.File{}, updates: map[string]string{}}
}

func (d *fakeDrive) put(id, name, mimeType string, data []byte) {
	d.files[id] = drive.File{ID: id, Name: name, MimeType: mimeType, OriginalMimeType: mimeType,
		Content: base64.StdEncoding.EncodeToString(data)}
}

func (d *fakeDrive) ListFiles(context.Context, string) (drive.ListResult, error) {
	return drive.ListResult{Files: []drive.File{}}, nil
}

func (d *fakeDrive) GetFileMetadata(_ context.Context, id string) (drive.File, error) {
	f, ok := d.files[id]
	if !ok {
		return drive.File{}, apperr.NotFound("Failed to get file metadata", drive.ErrNotFound)
	}
	return f, nil
}

func (d *fakeDrive) DownloadFile(ctx context.Context, id string) (drive.File, error) {
	return d.GetFileMetadata(ctx, id)
}

func (d *fakeDrive) CreateGoogleDoc(_ context.Context, name, folderID string) (drive.DocRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn == "create" {
		return drive.DocRef{}, apperr.Upstream("Failed to create Google Doc", errors.New("quota exceeded"))
	}
	d.created = append(d.created, name)
	d.folders = append(d.folders, folderID)
	return drive.DocRef{ID: "gdoc-1", Name: name}, nil
}

func (d *fakeDrive) UpdateGoogleDoc(_ context.Context, id, content string) (drive.DocRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates[id] = content
	return drive.DocRef{ID: id}, nil
}

type failingBlobs struct{ blobrepo.Store }

func (failingBlobs) Upload(context.Context, string, []byte, string) (blobrepo.Object, error) {
	return blobrepo.Object{}, errors.New("bucket unavailable")
}

type fixture struct {
	svc   *Service
	blobs *blobrepo.MemoryStore
	tasks *task.MemoryStore
	drive *fakeDrive
	llm   *llmclient.FakeClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		blobs: blobrepo.NewMemoryStore(),
		tasks: task.NewMemoryStore(),
		drive: newFakeDrive(),
		llm:   llmclient.NewFakeClient(nil),
	}
	f.svc = New(Deps{
		Blobs:     f.blobs,
		Tasks:     f.tasks,
		Drive:     f.drive,
		Generator: tender.NewAnalyzer(f.llm),
	})
	return f
}

func (f *fixture) scriptSuccess() {
	f.llm.Push(analysisJSON, nil).Push("# Draft\n\nWe will clean.", nil)
}

func (f *fixture) upload(t *testing.T) UploadResult {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "Council Tender.pdf", ContentType: "application/pdf", Size: int64(len(pdfBytes)), Data: pdfBytes,
	})
	require.NoError(t, err)
	return res
}

func TestUploadRejectsWrongType(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "notes.txt", ContentType: "text/plain", Size: 5, Data: []byte("hello"),
	})
	require.Error(t, err)
	assert.Equal(t, "Only PDF or DOCX files are allowed.", err.Error())
	assert.Equal(t, 400, apperr.HTTPStatus(err))
	assert.Zero(t, f.blobs.Len())

	tasks, _ := f.tasks.List(context.Background())
	assert.Empty(t, tasks)
}

func TestUploadRejectsOversizedFileBeforeType(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "huge.exe", ContentType: "application/x-msdownload", Size: config.DefaultUploadMaxBytes + 1,
	})
	require.Error(t, err)
	assert.Equal(t, "File size exceeds 20MB limit.", err.Error())
	assert.Zero(t, f.blobs.Len())
}

func TestUploadCreatesPendingRecord(t *testing.T) {
	f := newFixture(t)
	res := f.upload(t)

	assert.True(t, strings.HasPrefix(res.StoreID, "rft/"))
	assert.True(t, strings.HasSuffix(res.StoreID, "/Council_Tender.pdf"))

	rec, err := f.tasks.Get(context.Background(), res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, rec.Status)
	assert.Equal(t, task.SourceLocal, rec.Source)
	assert.Equal(t, "Council Tender.pdf", rec.Name)
	assert.Equal(t, res.StoreID, rec.RFTFileID)
	assert.Empty(t, rec.OutputFileID)

	stored, err := f.blobs.Download(context.Background(), res.StoreID)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, stored)
}

func TestUploadAcceptsDOCX(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	_, _ = w.Write([]byte(`<w:document xmlns:w="w"><w:body><w:p><w:r><w:t>Scope</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, zw.Close())

	res, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "rft.docx", ContentType: document.MimeDOCX, Size: int64(buf.Len()), Data: buf.Bytes(),
	})
	require.NoError(t, err)
	obj, err := f.blobs.Stat(context.Background(), res.StoreID)
	require.NoError(t, err)
	assert.Equal(t, document.MimeDOCX, obj.ContentType)
}

func TestUploadStorageFailureLeavesNoRecord(t *testing.T) {
	tasks := task.NewMemoryStore()
	svc := New(Deps{Blobs: failingBlobs{}, Tasks: tasks})
	_, err := svc.Upload(context.Background(), UploadInput{
		FileName: "t.pdf", ContentType: "application/pdf", Size: int64(len(pdfBytes)), Data: pdfBytes,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	list, _ := tasks.List(context.Background())
	assert.Empty(t, list)
}

func TestUploadMissingStorageConfig(t *testing.T) {
	f := newFixture(t)
	f.svc.missing = func(...config.Feature) []string { return []string{"STORAGE_S3_ACCESS_KEY"} }
	_, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "t.pdf", ContentType: "application/pdf", Size: int64(len(pdfBytes)), Data: pdfBytes,
	})
	require.Error(t, err)
	assert.Equal(t, 500, apperr.HTTPStatus(err))
	assert.Contains(t, err.Error(), "STORAGE_S3_ACCESS_KEY")
}

func TestGenerateRequiresExactlyOneSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), GenerateInput{})
	require.Error(t, err)
	assert.Equal(t, msgMissingSource, err.Error())
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	_, err = f.svc.Generate(context.Background(), GenerateInput{StoreID: "a", DriveFileID: "b"})
	assert.Equal(t, msgBothSources, err.Error())

	list, _ := f.tasks.List(context.Background())
	assert.Empty(t, list)
}

func TestGenerateFromUploadCompletesTask(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.scriptSuccess()

	res, err := f.svc.Generate(context.Background(), GenerateInput{StoreID: up.StoreID})
	require.NoError(t, err)
	assert.Equal(t, up.TaskID, res.TaskID)
	assert.Equal(t, task.StatusCompleted, res.Status)
	assert.Equal(t, task.SourceLocal, res.Source)
	assert.Equal(t, blobrepo.ResponseKey(up.TaskID), res.OutputFileID)

	rec, err := f.tasks.Get(context.Background(), res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, rec.Status)
	assert.Equal(t, res.OutputFileID, rec.ResponsePath)
	assert.Equal(t, task.Progress{Parsing: true, Analysis: true, Drafting: true, Validation: true, Formatting: true}, rec.Progress)

	var an tender.Analysis
	require.NoError(t, json.Unmarshal(rec.Requirements, &an))
	assert.Equal(t, "Office cleaning", an.Summary)

	draft, err := f.blobs.Download(context.Background(), res.OutputFileID)
	require.NoError(t, err)
	assert.Equal(t, "# Draft\n\nWe will clean.", string(draft))
	assert.Empty(t, f.drive.created)
}

func TestGenerateWithOutputFolderCreatesHostedDoc(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.scriptSuccess()

	res, err := f.svc.Generate(context.Background(), GenerateInput{StoreID: up.StoreID, OutputFolderID: "folder-42"})
	require.NoError(t, err)
	assert.Equal(t, "gdoc-1", res.OutputFileID)
	assert.Equal(t, []string{"folder-42"}, f.drive.folders)
	assert.Equal(t, []string{"Council Tender - Draft Response"}, f.drive.created)
	assert.Equal(t, "# Draft\n\nWe will clean.", f.drive.updates["gdoc-1"])

	rec, _ := f.tasks.Get(context.Background(), res.TaskID)
	assert.Equal(t, "gdoc-1", rec.OutputFileID)
	assert.Equal(t, blobrepo.ResponseKey(res.TaskID), rec.ResponsePath)
}

func TestGenerateFromDrive(t *testing.T) {
	f := newFixture(t)
	f.drive.put("drv-1", "Hospital RFT", drive.MimeTextPlain, []byte("Clean 3 wards daily."))
	f.scriptSuccess()

	res, err := f.svc.Generate(context.Background(), GenerateInput{DriveFileID: "drv-1"})
	require.NoError(t, err)
	assert.Equal(t, task.SourceGoogleDrive, res.Source)

	rec, _ := f.tasks.Get(context.Background(), res.TaskID)
	assert.Equal(t, "Hospital RFT", rec.Name)
	assert.Equal(t, "drv-1", rec.RFTFileID)
	assert.Contains(t, f.llm.Calls()[0].Text(), "Clean 3 wards daily.")
}

func TestGenerateAIFailureMarksTaskFailed(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.llm.Push("", errors.New("503 overloaded"))

	_, err := f.svc.Generate(context.Background(), GenerateInput{StoreID: up.StoreID})
	require.Error(t, err)
	assert.Equal(t, 500, apperr.HTTPStatus(err))

	rec, _ := f.tasks.Get(context.Background(), up.TaskID)
	assert.Equal(t, task.StatusFailed, rec.Status)
	assert.Empty(t, rec.OutputFileID)
}

func TestGenerateInvalidAnalysisMarksTaskFailed(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.llm.Push("not json at all", nil)

	_, err := f.svc.Generate(context.Background(), GenerateInput{StoreID: up.StoreID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindParse, apperr.KindOf(err))

	rec, _ := f.tasks.Get(context.Background(), up.TaskID)
	assert.Equal(t, task.StatusFailed, rec.Status)
}

func TestGenerateHostedDocFailureMarksTaskFailed(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.scriptSuccess()
	f.drive.failOn = "create"

	_, err := f.svc.Generate(context.Background(), GenerateInput{StoreID: up.StoreID, OutputFolderID: "folder"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to create Google Doc")

	rec, _ := f.tasks.Get(context.Background(), up.TaskID)
	assert.Equal(t, task.StatusFailed, rec.Status)
}

func TestGenerateUnknownStoreIDFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), GenerateInput{StoreID: "rft/none/x.pdf"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, _ := f.tasks.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, task.StatusFailed, list[0].Status)
}

func TestGenerateDuplicateSubmissionsCreateNewRecords(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.scriptSuccess()
	f.scriptSuccess()

	first, err := f.svc.Generate(context.Background(), GenerateInput{StoreID: up.StoreID})
	require.NoError(t, err)
	second, err := f.svc.Generate(context.Background(), GenerateInput{StoreID: up.StoreID})
	require.NoError(t, err)
	assert.NotEqual(t, first.TaskID, second.TaskID)

	list, _ := f.tasks.List(context.Background())
	assert.Len(t, list, 2)
}

// gatedTasks holds every ClaimPending caller until all of them have arrived.
type gatedTasks struct {
	task.Store
	arrived *sync.WaitGroup
}

func (g gatedTasks) ClaimPending(ctx context.Context, rftFileID string) (task.Record, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.Store.ClaimPending(ctx, rftFileID)
}

func TestGenerateConcurrentSubmissionsGetIndependentRecords(t *testing.T) {
	f := newFixture(t)
	up := f.upload(t)
	f.llm.Respond = tender.OfflineResponder

	const runs = 2
	var arrived sync.WaitGroup
	arrived.Add(runs)
	f.svc.tasks = gatedTasks{Store: f.tasks, arrived: &arrived}

	var wg sync.WaitGroup
	results := make([]GenerateResult, runs)
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Generate(context.Background(), GenerateInput{StoreID: up.StoreID})
		}(i)
	}
	wg.Wait()

	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, task.StatusCompleted, results[i].Status)
	}
	assert.NotEqual(t, results[0].TaskID, results[1].TaskID)
	assert.Contains(t, []string{results[0].TaskID, results[1].TaskID}, up.TaskID)

	list, err := f.tasks.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, rec := range list {
		assert.Equal(t, task.StatusCompleted, rec.Status)
		assert.Equal(t, up.StoreID, rec.RFTFileID)
	}
}

func TestGenerateMissingCredentials(t *testing.T) {
	f := newFixture(t)
	f.svc.missing = func(features ...config.Feature) []string {
		for _, ft := range features {
			if ft == config.FeatureDrive {
				return []string{"GOOGLE_SERVICE_ACCOUNT"}
			}
		}
		return nil
	}
	_, err := f.svc.Generate(context.Background(), GenerateInput{DriveFileID: "x"})
	require.Error(t, err)
	assert.Equal(t, "Missing required environment variables: GOOGLE_SERVICE_ACCOUNT", err.Error())
	list, _ := f.tasks.List(context.Background())
	assert.Empty(t, list)
}

func TestAssist(t *testing.T) {
	f := newFixture(t)
	f.llm.Push("Polished.", nil)

	temp := float32(0.2)
	res, err := f.svc.Assist(context.Background(), AssistInput{Prompt: "fix this", Temperature: &temp, Mode: tender.ModePolish})
	require.NoError(t, err)
	assert.Equal(t, "Polished.", res.Content)
	assert.NotEmpty(t, f.llm.Calls()[0].Opts.System)

	_, err = f.svc.Assist(context.Background(), AssistInput{Prompt: "  "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	tokens := 9000
	_, err = f.svc.Assist(context.Background(), AssistInput{Prompt: "x", MaxTokens: &tokens})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAnalyzeText(t *testing.T) {
	f := newFixture(t)
	f.llm.Push(analysisJSON, nil)

	an, err := f.svc.AnalyzeText(context.Background(), AnalyzeInput{Text: "Tender for cleaning"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Price"}, an.KeyCriteria)

	_, err = f.svc.AnalyzeText(context.Background(), AnalyzeInput{})
	assert.EqualError(t, err, "text is required for analyzeTender action")
}
