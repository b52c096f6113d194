package trackerrms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func newTestClient(srv *httptest.Server, opts ...Option) Client {
	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRetry(fastRetry())}, opts...)
	return NewClient("trk-key", opts...)
}

func TestListJobs_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, "trk-key", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))

		pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var data []map[string]any
		switch pageNum {
		case 1:
			data = []map[string]any{
				{"id": 101, "jobTitle": "Nurse", "serviceLine": "Healthcare", "dateCreated": "2024-01-01T00:00:00Z", "billRate": 85.5},
				{"id": "J-102", "jobTitle": "Welder", "openDate": "2024-01-05"},
			}
		case 2:
			data = []map[string]any{
				{"id": 103, "jobTitle": "Analyst"},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": data, "total": 3}) //nolint:errcheck
	}))
	defer srv.Close()

	jobs, err := newTestClient(srv, WithPageSize(2)).ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, "101", jobs[0].ID)
	assert.Equal(t, "Nurse", jobs[0].Title)
	assert.Equal(t, "2024-01-01T00:00:00Z", jobs[0].CreatedAt)
	require.NotNil(t, jobs[0].BillRate)
	assert.InDelta(t, 85.5, *jobs[0].BillRate, 0.001)
	assert.Equal(t, "J-102", jobs[1].ID)
	assert.Equal(t, "2024-01-05", jobs[1].OpenTimestamp())
	assert.Equal(t, "103", jobs[2].ID)
}

func TestListJobs_ExactMultipleFetchesEmptyPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			fmt.Fprint(w, `{"data":[{"id":1},{"id":2}]}`)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	jobs, err := newTestClient(srv, WithPageSize(2)).ListJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListPlacements_ConvertsAttribution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/placements", r.URL.Path)
		fmt.Fprint(w, `{"data":[
			{"id":1,"jobId":101,"candidateName":"Ada","startDate":"2024-01-10","revenue":20000,"margin":5000,"serviceLine":"Healthcare","marketingCost":1000,"salesCost":500},
			{"id":2,"jobId":"102","dateCreated":"2024-02-01T09:00:00Z"}
		]}`)
	}))
	defer srv.Close()

	ps, err := newTestClient(srv).ListPlacements(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, "1", ps[0].ID)
	assert.Equal(t, "101", ps[0].JobID)
	assert.InDelta(t, 20000, ps[0].RevenueValue(), 0.001)
	require.NotNil(t, ps[0].Attribution)
	m, s := ps[0].Attribution.Costs()
	assert.InDelta(t, 1000, m, 0.001)
	assert.InDelta(t, 500, s, 0.001)

	assert.Equal(t, "102", ps[1].JobID)
	assert.Nil(t, ps[1].Attribution)
	assert.Equal(t, "2024-02-01T09:00:00Z", ps[1].FillTimestamp())
	assert.Equal(t, "Unassigned", ps[1].Line())
}

func TestGetPlacement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/placements/42" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"not found"}`)
			return
		}
		fmt.Fprint(w, `{"id":42,"jobId":7,"revenue":1200.5}`)
	}))
	defer srv.Close()
	c := newTestClient(srv)

	p, err := c.GetPlacement(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "7", p.JobID)

	_, err = c.GetPlacement(context.Background(), "43")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.False(t, resilience.IsTransient(err))

	_, err = c.GetPlacement(context.Background(), "")
	assert.Error(t, err)
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":1}]}`)
	}))
	defer srv.Close()

	jobs, err := newTestClient(srv).ListJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListPlacements(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": "nope"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode page 1")
}

func TestRateLimitRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv, WithRateLimit(1)).ListJobs(ctx)
	assert.Error(t, err)
}
