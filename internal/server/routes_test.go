package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adactor "github.com/berfenger/yasdi2mqtt/internal/adapter/actor"
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
	"github.com/berfenger/yasdi2mqtt/internal/util"
	"github.com/berfenger/yasdi2mqtt/internal/util/actorutil"
	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (http.Handler, func()) {
	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)

	// the yasdi actor answers every request the master would forward
	pid, err := as.Root.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewYasdiActor(&cfg, adactor.SimulatedYasdiLibraries(0), &eventstream.EventStream{}, logger)
	}), domain.ACTOR_ID_YASDI)
	require.NoError(t, err)
	time.Sleep(300 * time.Millisecond)

	s := newServer(cfg, as.Root, pid)
	return s.RegisterRoutes(), func() {
		as.Root.Stop(pid)
		as.Shutdown()
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndDevices(t *testing.T) {

	assert := assert.New(t)

	h, stop := newTestHandler(t)
	defer stop()

	rec := do(t, h, http.MethodGet, "/healthcheck", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("health_check: OK", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/drivers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var drivers []domain.DriverInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &drivers))
	require.Len(t, drivers, 1)
	assert.Equal("COM1", drivers[0].Name)

	rec = do(t, h, http.MethodGet, "/api/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var devices []domain.DeviceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &devices))
	require.Len(t, devices, 2)
	assert.Equal(uint32(2000123456), devices[0].Serial)

	rec = do(t, h, http.MethodGet, "/api/state", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"state"`)
}

func TestChannelRoutes(t *testing.T) {

	assert := assert.New(t)

	h, stop := newTestHandler(t)
	defer stop()

	rec := do(t, h, http.MethodGet, "/api/devices/2000123456/channels?group=param", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var channels []domain.ChannelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &channels))
	assert.Len(channels, 3)

	rec = do(t, h, http.MethodGet, "/api/devices/2000123456/channels?group=bogus", "")
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/devices/1/channels", "")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/devices/2000123456/channels/Pac?max_age=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var value domain.ChannelValue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value))
	assert.Equal(2485.0, value.Value)

	rec = do(t, h, http.MethodGet, "/api/devices/2000123456/channels/Nope", "")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/devices/2000123456/channels/T-Start", `{"value": 120}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value))
	assert.Equal(120.0, value.Value)

	rec = do(t, h, http.MethodPut, "/api/devices/2000123456/channels/T-Start", `{"value": 9999}`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/devices/2000123456/channels/T-Start", `{}`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/detection?min=2", "")
	assert.Equal(http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/detection?min=5", "")
	assert.Equal(http.StatusPartialContent, rec.Code)
}

func TestStatusForError(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(http.StatusNotFound, statusForError(fmt.Errorf("x: %w", domain.ErrDeviceNotFound)))
	assert.Equal(http.StatusBadRequest, statusForError(&yasdi.CallError{Op: "SetChannelValue", Code: yasdi.YE_VALUE_NOT_VALID}))
	assert.Equal(http.StatusConflict, statusForError(yasdi.YE_DEV_DETECT_IN_PROGRESS))
	assert.Equal(http.StatusGatewayTimeout, statusForError(yasdi.YE_TIMEOUT))
	assert.Equal(http.StatusBadGateway, statusForError(yasdi.YE_SHUTDOWN))
	assert.Equal(http.StatusServiceUnavailable, statusForError(actor.ErrTimeout))
	assert.Equal(http.StatusInternalServerError, statusForError(errors.New("boom")))
}
