package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"pdfedit/internal/docstore"
	"pdfedit/internal/metrics"
	"pdfedit/internal/model"
	"pdfedit/internal/pdf"
	"pdfedit/internal/pdf/pdftest"
	"pdfedit/internal/rendercache"
	repoMocks "pdfedit/internal/repository/mocks"
	"pdfedit/internal/storage"
)

const testDocID = "0f8fad5b-d9cb-469f-a165-70867728950e"

// testEnv is one stored document behind repository mocks that track structural updates.
type testEnv struct {
	repo    *repoMocks.MockDocumentRepository
	edits   *repoMocks.MockEditModelRepository
	mem     *storage.Memory
	store   *docstore.Store
	cache   *rendercache.Cache
	metrics *metrics.Metrics
	log     *logrus.Logger
	logs    *test.Hook
	slots   *semaphore.Weighted
	meta    *model.Document
}

func newEnv(t *testing.T, labels ...string) *testEnv {
	t.Helper()
	ctx := context.Background()
	log, hook := test.NewNullLogger()
	e := &testEnv{
		repo:    new(repoMocks.MockDocumentRepository),
		edits:   new(repoMocks.MockEditModelRepository),
		mem:     storage.NewMemory(),
		metrics: metrics.NewNop(),
		log:     log,
		logs:    hook,
		slots:   semaphore.NewWeighted(2),
	}
	e.store = docstore.New(e.repo, e.mem)
	e.cache = rendercache.New(e.mem, e.metrics, log)

	data := pdftest.Build(t, labels...)
	key := "documents/" + testDocID + ".pdf"
	_, err := storage.PutBytes(ctx, e.mem, key, data, docstore.ContentTypePDF)
	require.NoError(t, err)
	e.meta = &model.Document{
		ID:           testDocID,
		Filename:     testDocID + ".pdf",
		OriginalName: "report.pdf",
		StoragePath:  key,
		Size:         int64(len(data)),
		ContentType:  docstore.ContentTypePDF,
		PageCount:    len(labels),
	}
	e.repo.On("FindByID", mock.Anything, testDocID).Return(e.meta, nil).Maybe()
	e.repo.On("UpdateStructure", mock.Anything, testDocID, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			e.meta.PageCount = args.Int(2)
			e.meta.Size = args.Get(3).(int64)
		}).
		Return(nil).Maybe()
	return e
}

// open parses the currently stored source.
func (e *testEnv) open(t *testing.T) *pdf.Document {
	t.Helper()
	raw, _, err := storage.ReadAll(context.Background(), e.mem, e.meta.StoragePath)
	require.NoError(t, err)
	d, err := pdf.Open(context.Background(), raw)
	require.NoError(t, err)
	return d
}

func (e *testEnv) source(t *testing.T) []byte {
	t.Helper()
	raw, _, err := storage.ReadAll(context.Background(), e.mem, e.meta.StoragePath)
	require.NoError(t, err)
	return raw
}

// renderKeys lists the cached render objects of the test document.
func (e *testEnv) renderKeys(t *testing.T) []string {
	t.Helper()
	objs, err := e.mem.List(context.Background(), rendercache.DocPrefix(testDocID))
	require.NoError(t, err)
	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}
	return keys
}

// warm renders every page at the given scales.
func (e *testEnv) warm(t *testing.T, svc RenderService, scales ...float64) {
	t.Helper()
	for page := 0; page < e.meta.PageCount; page++ {
		for _, s := range scales {
			_, _, err := svc.Render(context.Background(), testDocID, page, s)
			require.NoError(t, err)
		}
	}
}
