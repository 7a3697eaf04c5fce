package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/regulens/alertfabric/internal/feedstream"
	"github.com/regulens/alertfabric/internal/store/memstore"
	"github.com/regulens/alertfabric/pkg/activity"
	"github.com/regulens/alertfabric/pkg/collab"
	"github.com/regulens/alertfabric/pkg/models"
	"github.com/regulens/alertfabric/pkg/notify"
	"github.com/regulens/alertfabric/pkg/rules"
	"github.com/regulens/alertfabric/pkg/scan"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// noopTransactionSource satisfies pkg/scan.TransactionSource without
// pulling in a real data source — the API layer under test never
// triggers an actual scan pass.
type noopTransactionSource struct{}

func (noopTransactionSource) CountMatching(ctx context.Context, filters models.ScanFilters) (int, error) {
	return 0, nil
}

func (noopTransactionSource) StreamMatching(ctx context.Context, filters models.ScanFilters, visit func(models.Transaction) error) error {
	return nil
}

// newTestServer builds a Server over an in-memory store with every
// subsystem wired, mirroring cmd/alertd/main.go's construction order.
func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()
	store := memstore.New()

	notifier := notify.NewService(store, store, store, notify.DefaultConfig())
	ruleEngine := rules.NewEngine(store, store, notifier, rules.DefaultConfig())
	feed := activity.NewFeed(store, activity.DefaultConfig())
	scanPool := scan.NewPool(store, noopTransactionSource{}, scan.DefaultConfig())
	collabMgr := collab.NewManager(store, collab.DefaultConfig())

	hub := feedstream.NewHub(feedstream.NewBridge(feed, notifier, store), 0)

	srv := NewServer(store, store, store, store, store,
		ruleEngine, notifier, feed, scanPool, collabMgr,
		hub, nil, nil)
	return srv, store
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}
