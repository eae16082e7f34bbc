package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"elderaid/internal/aggregator"
	"elderaid/internal/chat"
	"elderaid/internal/domain"
	"elderaid/internal/models"
	"elderaid/internal/repository"
	"elderaid/internal/service"
	"elderaid/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const testElderID = "elder-1"

var testLoc = time.FixedZone("UTC+8", 8*3600)

// discardPublisher 丢弃事件
type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, domain.ElderEvent) error { return nil }

type testAPI struct {
	router *Router
	mr     *miniredis.Miniredis
	cache  *aggregator.CacheManager
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zap.NewNop()
	kv := store.NewRedisKV(client)
	repos := repository.NewKVRepository(kv).Repositories()
	cache := aggregator.NewCacheManager(kv, time.Minute, logger)
	publisher := aggregator.NewEvictingPublisher(discardPublisher{}, cache, logger)

	router := NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterMedicationRoutes(NewMedicationHandler(
		service.NewMedicationService(repos.Medications, repos.Status, nil, publisher, logger), testLoc, logger))
	router.RegisterContactRoutes(NewContactHandler(service.NewContactService(repos.Contacts, publisher, logger), logger))
	router.RegisterMemoryRoutes(NewMemoryHandler(service.NewMemoryService(repos.Memories, nil, nil, logger), logger))
	router.RegisterChatRoutes(NewChatHandler(
		service.NewChatService(repos.Chat, repos.Status, chat.NewRulesResponder(), 20, nil, logger), 50, logger))
	router.RegisterStatusRoutes(NewStatusHandler(service.NewStatusService(repos.Status, repos.Preferences, nil, nil, logger), logger))
	router.RegisterPreferencesRoutes(NewPreferencesHandler(service.NewPreferencesService(repos.Preferences, publisher, logger), logger))
	router.RegisterDashboardRoutes(NewDashboardHandler(service.NewDashboardService(repos, 0, logger), cache, testLoc, logger))
	router.RegisterReportRoutes(NewReportHandler(service.NewReportService(repos.Medications, logger), testLoc, logger))

	return &testAPI{router: router, mr: mr, cache: cache}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Elder-ID", testElderID)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeResult[T any](t *testing.T, w *httptest.ResponseRecorder) Result[T] {
	t.Helper()
	var res Result[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestHealthz(t *testing.T) {
	api := setupTestAPI(t)
	w := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodPost, "/healthz", nil).Code)
}

func TestMissingElderHeader(t *testing.T) {
	api := setupTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, APIPrefix+"/medications", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	res := decodeResult[any](t, w)
	assert.Equal(t, ResultError, res.Code)
	assert.Equal(t, "error", res.Type)
}

func TestMedicationRoutes(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, http.MethodPost, APIPrefix+"/medications", map[string]any{"name": "Aspirin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, APIPrefix+"/medications", domain.Medication{
		Name:     "Aspirin",
		Dosage:   "100mg",
		Schedule: []domain.ScheduleEntry{{Time: "08:00", Days: []string{"Daily"}}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decodeResult[domain.Medication](t, w).Result
	require.NotEmpty(t, saved.ID)

	list := decodeResult[[]domain.Medication](t, api.do(t, http.MethodGet, APIPrefix+"/medications", nil)).Result
	require.Len(t, list, 1)
	assert.Equal(t, "Aspirin", list[0].Name)

	latest := api.do(t, http.MethodGet, APIPrefix+"/medications/"+saved.ID+"/latest", nil)
	require.Equal(t, http.StatusOK, latest.Code)
	assert.Nil(t, decodeResult[*domain.MedicationLog](t, latest).Result)

	w = api.do(t, http.MethodPost, APIPrefix+"/medications/"+saved.ID+"/log", map[string]string{"status": "taken"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	logged := decodeResult[domain.MedicationLog](t, w).Result
	assert.Equal(t, domain.LogTaken, logged.Status)
	assert.Equal(t, "08:00", logged.ScheduledTime)

	today := decodeResult[[]domain.MedicationWithLog](t, api.do(t, http.MethodGet, APIPrefix+"/medications/today", nil)).Result
	require.Len(t, today, 1)
	require.NotNil(t, today[0].Log)
	assert.Equal(t, logged.ID, today[0].Log.ID)

	latest = api.do(t, http.MethodGet, APIPrefix+"/medications/"+saved.ID+"/latest", nil)
	got := decodeResult[*domain.MedicationLog](t, latest).Result
	require.NotNil(t, got)
	assert.Equal(t, logged.ID, got.ID)

	// 服药同时更新状态快照
	st := decodeResult[*domain.ElderStatus](t, api.do(t, http.MethodGet, APIPrefix+"/status", nil)).Result
	require.NotNil(t, st)
	require.NotNil(t, st.LastMedicationTaken)
	assert.Equal(t, "Aspirin", st.LastMedicationTaken.Name)

	w = api.do(t, http.MethodPost, APIPrefix+"/medications/"+saved.ID+"/log", map[string]string{"status": "skipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodDelete, APIPrefix+"/medications/"+saved.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodDelete, APIPrefix+"/medications/"+saved.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, APIPrefix+"/medications/nope/log", map[string]string{"status": "taken"}).Code)
}

func TestMedicationRoutes_MethodAndPath(t *testing.T) {
	api := setupTestAPI(t)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodPut, APIPrefix+"/medications", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodPost, APIPrefix+"/medications/today", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodGet, APIPrefix+"/medications/m1/log", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, APIPrefix+"/medications/m1/unknown", nil).Code)
}

func TestContactRoutes(t *testing.T) {
	api := setupTestAPI(t)

	primary := decodeResult[*domain.EmergencyContact](t, api.do(t, http.MethodGet, APIPrefix+"/contacts/primary", nil)).Result
	assert.Nil(t, primary)

	w := api.do(t, http.MethodPost, APIPrefix+"/contacts", domain.EmergencyContact{
		Name: "Daughter", Phone: "555-0100", Relationship: "daughter", IsPrimary: true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	daughter := decodeResult[domain.EmergencyContact](t, w).Result

	w = api.do(t, http.MethodPost, APIPrefix+"/contacts", domain.EmergencyContact{
		Name: "Son", Phone: "555-0101", Relationship: "son",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	son := decodeResult[domain.EmergencyContact](t, w).Result

	primary = decodeResult[*domain.EmergencyContact](t, api.do(t, http.MethodGet, APIPrefix+"/contacts/primary", nil)).Result
	require.NotNil(t, primary)
	assert.Equal(t, daughter.ID, primary.ID)

	w = api.do(t, http.MethodPost, APIPrefix+"/contacts/"+son.ID+"/primary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	contacts := decodeResult[[]domain.EmergencyContact](t, w).Result
	primaries := 0
	for _, c := range contacts {
		if c.IsPrimary {
			primaries++
			assert.Equal(t, son.ID, c.ID)
		}
	}
	assert.Equal(t, 1, primaries)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, APIPrefix+"/contacts/nope/primary", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodDelete, APIPrefix+"/contacts/"+daughter.ID, nil).Code)

	list := decodeResult[[]domain.EmergencyContact](t, api.do(t, http.MethodGet, APIPrefix+"/contacts", nil)).Result
	require.Len(t, list, 1)
	assert.Equal(t, son.ID, list[0].ID)
}

func TestMemoryRoutes_JSONAndMultipart(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, http.MethodPost, APIPrefix+"/memories", map[string]any{
		"imageUri":  "file:///photos/beach.jpg",
		"caption":   "Beach",
		"timestamp": 1000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	beach := decodeResult[domain.Memory](t, w).Result

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("imageUri", "file:///photos/garden.jpg"))
	require.NoError(t, mw.WriteField("caption", "Garden"))
	require.NoError(t, mw.WriteField("tags", "family, summer ,"))
	require.NoError(t, mw.WriteField("timestamp", "2000"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, APIPrefix+"/memories", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Elder-ID", testElderID)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	garden := decodeResult[domain.Memory](t, rec).Result
	assert.Equal(t, []string{"family", "summer"}, garden.Tags)

	list := decodeResult[[]domain.Memory](t, api.do(t, http.MethodGet, APIPrefix+"/memories", nil)).Result
	require.Len(t, list, 2)
	assert.Equal(t, garden.ID, list[0].ID)
	assert.Equal(t, beach.ID, list[1].ID)

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodDelete, APIPrefix+"/memories/"+beach.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodDelete, APIPrefix+"/memories/"+beach.ID, nil).Code)
}

func TestMemoryRoutes_UploadDisabled(t *testing.T) {
	api := setupTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, APIPrefix+"/memories", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Elder-ID", testElderID)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRoutes(t *testing.T) {
	api := setupTestAPI(t)

	history := decodeResult[[]domain.ChatMessage](t, api.do(t, http.MethodGet, APIPrefix+"/chat", nil)).Result
	require.Len(t, history, 1)
	assert.Equal(t, domain.SenderBot, history[0].Sender)
	assert.Equal(t, chat.GreetingText, history[0].Text)

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, APIPrefix+"/chat", map[string]string{"text": "  "}).Code)

	w := api.do(t, http.MethodPost, APIPrefix+"/chat", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reply := decodeResult[domain.ChatMessage](t, w).Result
	assert.Equal(t, domain.SenderBot, reply.Sender)
	assert.NotEmpty(t, reply.Text)

	history = decodeResult[[]domain.ChatMessage](t, api.do(t, http.MethodGet, APIPrefix+"/chat?limit=10", nil)).Result
	require.Len(t, history, 2)
	assert.Equal(t, domain.SenderUser, history[0].Sender)
	assert.Equal(t, "hello", history[0].Text)

	history = decodeResult[[]domain.ChatMessage](t, api.do(t, http.MethodGet, APIPrefix+"/chat?limit=1", nil)).Result
	require.Len(t, history, 1)
	assert.Equal(t, reply.ID, history[0].ID)
}

func TestStatusRoutes(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, http.MethodGet, APIPrefix+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeResult[*domain.ElderStatus](t, w).Result)

	w = api.do(t, http.MethodPost, APIPrefix+"/status/location", map[string]float64{"latitude": 31.23, "longitude": 121.47})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decodeResult[domain.ElderStatus](t, w).Result
	require.NotNil(t, st.LastLocation)
	assert.InDelta(t, 31.23, st.LastLocation.Latitude, 1e-9)
	assert.NotZero(t, st.LastSeen)

	assert.Equal(t, http.StatusBadRequest,
		api.do(t, http.MethodPost, APIPrefix+"/status/location", map[string]float64{"latitude": 95, "longitude": 0}).Code)
	assert.Equal(t, http.StatusBadRequest,
		api.do(t, http.MethodPost, APIPrefix+"/status/location", map[string]float64{"latitude": 10}).Code)

	w = api.do(t, http.MethodPatch, APIPrefix+"/status", domain.StatusPatch{
		LastChatInteraction: &domain.ChatInteraction{Message: "hi", Timestamp: 5},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st = decodeResult[domain.ElderStatus](t, w).Result
	require.NotNil(t, st.LastLocation, "location kept across patches")
	require.NotNil(t, st.LastChatInteraction)
	assert.Equal(t, "hi", st.LastChatInteraction.Message)

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, APIPrefix+"/status/heartbeat", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodGet, APIPrefix+"/status/heartbeat", nil).Code)
}

func TestPreferencesRoutes(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, http.MethodGet, APIPrefix+"/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.DefaultPreferences(), decodeResult[domain.Preferences](t, w).Result)

	w = api.do(t, http.MethodPut, APIPrefix+"/preferences", map[string]any{
		"emergencyNumber":        "120",
		"enableLocationTracking": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decodeResult[domain.Preferences](t, w).Result
	assert.Equal(t, "120", p.EmergencyNumber)
	assert.False(t, p.EnableLocationTracking)
	assert.True(t, p.EnableNotifications)

	assert.Equal(t, http.StatusBadRequest,
		api.do(t, http.MethodPut, APIPrefix+"/preferences", map[string]any{"emergencyNumber": ""}).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodDelete, APIPrefix+"/preferences", nil).Code)

	// 关闭位置追踪后拒绝位置上报
	w = api.do(t, http.MethodPost, APIPrefix+"/status/location", map[string]float64{"latitude": 31.23, "longitude": 121.47})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "location tracking is disabled")

	// 首页带上紧急电话
	home := decodeResult[models.ElderHome](t, api.do(t, http.MethodGet, APIPrefix+"/home", nil)).Result
	assert.Equal(t, "120", home.EmergencyNumber)
}

func TestDashboard_ServesCache(t *testing.T) {
	api := setupTestAPI(t)

	cached := &models.FamilyDashboard{ElderID: testElderID, GeneratedAt: 42}
	require.NoError(t, api.cache.UpdateDashboardCache(context.Background(), testElderID, cached))

	w := api.do(t, http.MethodGet, APIPrefix+"/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeResult[models.FamilyDashboard](t, w).Result
	assert.Equal(t, int64(42), got.GeneratedAt)
}

func TestDashboard_MissBuildsAndCaches(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, http.MethodPost, APIPrefix+"/contacts", domain.EmergencyContact{
		Name: "Daughter", Phone: "555-0100", Relationship: "daughter", IsPrimary: true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, APIPrefix+"/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeResult[models.FamilyDashboard](t, w).Result
	assert.Equal(t, testElderID, got.ElderID)
	require.NotNil(t, got.PrimaryContact)
	assert.Equal(t, "Daughter", got.PrimaryContact.Name)

	assert.True(t, api.mr.Exists(aggregator.DashboardKey(testElderID)))
	assert.Greater(t, api.mr.TTL(aggregator.DashboardKey(testElderID)), time.Duration(0))
}

func TestDashboard_MedicationDeleteEvictsCache(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, http.MethodPost, APIPrefix+"/medications", domain.Medication{
		Name:     "Aspirin",
		Dosage:   "100mg",
		Schedule: []domain.ScheduleEntry{{Time: "08:00", Days: []string{"daily"}}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	med := decodeResult[domain.Medication](t, w).Result

	got := decodeResult[models.FamilyDashboard](t, api.do(t, http.MethodGet, APIPrefix+"/dashboard", nil)).Result
	require.Len(t, got.TodaysMedications, 1)
	require.True(t, api.mr.Exists(aggregator.DashboardKey(testElderID)))

	require.Equal(t, http.StatusOK, api.do(t, http.MethodDelete, APIPrefix+"/medications/"+med.ID, nil).Code)
	assert.False(t, api.mr.Exists(aggregator.DashboardKey(testElderID)))

	got = decodeResult[models.FamilyDashboard](t, api.do(t, http.MethodGet, APIPrefix+"/dashboard", nil)).Result
	assert.Empty(t, got.TodaysMedications)
}

func TestHome(t *testing.T) {
	api := setupTestAPI(t)
	w := api.do(t, http.MethodGet, APIPrefix+"/home", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	home := decodeResult[models.ElderHome](t, w).Result
	assert.Equal(t, testElderID, home.ElderID)
	assert.Empty(t, home.TodaysMedications)
}

func TestMedicationReport(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, http.MethodPost, APIPrefix+"/medications", domain.Medication{Name: "Aspirin", Dosage: "100mg"})
	require.Equal(t, http.StatusOK, w.Code)
	med := decodeResult[domain.Medication](t, w).Result
	require.Equal(t, http.StatusOK,
		api.do(t, http.MethodPost, APIPrefix+"/medications/"+med.ID+"/log", map[string]string{"status": "taken"}).Code)

	w = api.do(t, http.MethodGet, APIPrefix+"/reports/medications", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Medication Logs")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, APIPrefix+"/reports/medications?from=03/01/2026", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		api.do(t, http.MethodGet, APIPrefix+"/reports/medications?from=2026-03-10&to=2026-03-01", nil).Code)
}

func TestReportRange(t *testing.T) {
	h := NewReportHandler(nil, testLoc, zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, testLoc) }

	req := httptest.NewRequest(http.MethodGet, "/x?from=2026-03-01&to=2026-03-07", nil)
	from, to, err := h.reportRange(req)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, testLoc), from)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, testLoc), to)

	from, to, err = h.reportRange(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, testLoc), to)
	assert.Equal(t, time.Date(2026, 2, 13, 0, 0, 0, 0, testLoc), from)
}
