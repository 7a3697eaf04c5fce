package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/pkg/models"
)

func TestCreateAndListScanJob(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := models.CreateScanJobRequest{Priority: 1, CreatedBy: "operator-1"}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/scan/jobs", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var job models.ScanJob
	decodeJSON(t, rec, &job)
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, models.ScanQueued, job.Status)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/scan/jobs/"+job.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/scan/jobs?status=queued", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []*models.ScanJob
	decodeJSON(t, rec, &jobs)
	require.Len(t, jobs, 1)
}

func TestScanHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/scan/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
