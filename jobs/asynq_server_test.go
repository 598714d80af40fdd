package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	infos map[string]*asynq.QueueInfo
	err   error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.infos[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(inspector, nil).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rr
}

func TestHealthReportsQueues(t *testing.T) {
	rr := serveHealth(t, stubInspector{infos: map[string]*asynq.QueueInfo{
		QueueAudit: {Queue: QueueAudit, Pending: 4, Retry: 1},
	}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Queues []queueHealth `json:"queues"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Queues) != 2 {
		t.Fatalf("expected 2 queues, got %d", len(body.Queues))
	}
	if body.Queues[0].Pending != 4 || body.Queues[0].Retry != 1 {
		t.Fatalf("unexpected audit queue stats: %+v", body.Queues[0])
	}
	if body.Queues[1].Queue != QueueDefault || body.Queues[1].Pending != 0 {
		t.Fatalf("unexpected default queue stats: %+v", body.Queues[1])
	}
}

func TestHealthWithoutInspector(t *testing.T) {
	if rr := serveHealth(t, nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestHealthUnavailable(t *testing.T) {
	if rr := serveHealth(t, stubInspector{err: errors.New("dial tcp")}); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestRedisOpt(t *testing.T) {
	opt, err := RedisOpt("rediss://worker:pw@cache:6380/3")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "worker", opt.Username)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 3, opt.DB)
	assert.NotNil(t, opt.TLSConfig)

	opt, err = RedisOpt("127.0.0.1:6379")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opt.Addr)
	assert.Nil(t, opt.TLSConfig)
}
