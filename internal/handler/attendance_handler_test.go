package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rollcall/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func insideWindow() time.Time {
	return time.Date(2025, 3, 10, 9, 30, 0, 0, time.FixedZone("Asia/Phnom_Penh", 7*60*60))
}

func performJSON(t *testing.T, handlerFunc gin.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")

	handlerFunc(c)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestCheckIn_Recorded(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())
	server.Window.Open()

	w := performJSON(t, server.CheckIn, http.MethodPost, "/api/checkin", CheckInRequest{
		MemberID: "1001",
		Username: "dara",
		FullName: "Dara Chan",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "recorded", data["outcome"])
	assert.Equal(t, "present", data["status"])
	assert.Equal(t, "2025-03-10", data["day"])

	var member models.Member
	require.NoError(t, server.DB.Where("external_id = ?", "1001").First(&member).Error)
	assert.Equal(t, "Dara Chan", member.FullName)
}

func TestCheckIn_WindowClosed(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())
	// Window flag never raised

	w := performJSON(t, server.CheckIn, http.MethodPost, "/api/checkin", CheckInRequest{MemberID: "1001"})

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "window_closed", data["outcome"])
	assert.Nil(t, data["status"])
}

func TestCheckIn_Duplicate(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())
	server.Window.Open()

	first := performJSON(t, server.CheckIn, http.MethodPost, "/api/checkin", CheckInRequest{MemberID: "1001"})
	require.Equal(t, http.StatusOK, first.Code)

	second := performJSON(t, server.CheckIn, http.MethodPost, "/api/checkin", CheckInRequest{MemberID: "1001"})
	assert.Equal(t, http.StatusOK, second.Code)
	data := decodeEnvelope(t, second)["data"].(map[string]any)
	assert.Equal(t, "already_recorded", data["outcome"])
}

func TestCheckIn_MissingMemberID(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())
	server.Window.Open()

	w := performJSON(t, server.CheckIn, http.MethodPost, "/api/checkin", map[string]string{"username": "dara"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForceMark_Handler(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())
	require.NoError(t, server.DB.Create(&models.Member{ExternalID: "1001", IsActive: true}).Error)

	w := performJSON(t, server.ForceMark, http.MethodPost, "/api/admin/force-mark", ForceMarkRequest{
		MemberID: "1001",
		Status:   models.StatusLate,
		Day:      "2025-03-10",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var record models.AttendanceRecord
	require.NoError(t, server.DB.First(&record).Error)
	assert.Equal(t, models.StatusLate, record.Status)

	var fineCount int64
	require.NoError(t, server.DB.Model(&models.Fine{}).Count(&fineCount).Error)
	assert.EqualValues(t, 1, fineCount)
}

func TestForceMark_UnknownMember(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())

	w := performJSON(t, server.ForceMark, http.MethodPost, "/api/admin/force-mark", ForceMarkRequest{
		MemberID: "nobody",
		Status:   models.StatusPresent,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestForceMark_InvalidStatus(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())

	w := performJSON(t, server.ForceMark, http.MethodPost, "/api/admin/force-mark", ForceMarkRequest{
		MemberID: "1001",
		Status:   "vacationing",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerSweep_Handler(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())
	require.NoError(t, server.DB.Create(&models.Member{ExternalID: "1001", IsActive: true}).Error)

	w := performJSON(t, server.TriggerSweep, http.MethodPost, "/api/admin/sweep", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.EqualValues(t, 1, data["swept"])

	var count int64
	require.NoError(t, server.DB.Model(&models.AttendanceRecord{}).
		Where("status = ? AND day = ?", models.StatusAbsent, datatypes.Date(server.Clock.Today())).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWindowStatus_Handler(t *testing.T) {
	t.Parallel()

	server := setupTestServer(t, insideWindow())
	server.Window.Open()

	w := performJSON(t, server.WindowStatus, http.MethodGet, "/api/window", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["open"])
	assert.Equal(t, "09:00", data["window_start"])
	assert.Equal(t, "10:00", data["window_end"])
}
