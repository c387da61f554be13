package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineRunsCounter(t *testing.T) {
	before := testutil.ToFloat64(PipelineRuns.WithLabelValues(OutcomeSuccess))
	PipelineRuns.WithLabelValues(OutcomeSuccess).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PipelineRuns.WithLabelValues(OutcomeSuccess)))
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	RowsInserted.Add(0)
	require.NoError(t, Push(srv.URL, "hydromap_predictor"))
	assert.Equal(t, "/metrics/job/hydromap_predictor", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, Push(srv.URL, "hydromap_predictor"))
}
