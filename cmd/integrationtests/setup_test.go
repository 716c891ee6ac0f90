package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uizzuu/ddauction-project-sub000/internal/config"
	"github.com/uizzuu/ddauction-project-sub000/internal/dispatcher"
	"github.com/uizzuu/ddauction-project-sub000/internal/hub"
	"github.com/uizzuu/ddauction-project-sub000/internal/ledger"
	"github.com/uizzuu/ddauction-project-sub000/internal/registry"
	"github.com/uizzuu/ddauction-project-sub000/internal/repository"
	"github.com/uizzuu/ddauction-project-sub000/internal/scheduler"
	"github.com/uizzuu/ddauction-project-sub000/internal/server"
	handler "github.com/uizzuu/ddauction-project-sub000/services/auction/handler"
)

// testStack is the full service wired on the in-memory store, the same way
// main assembles it for production.
type testStack struct {
	router  *gin.Engine
	store   *repository.MemoryRepo
	settler *scheduler.Scheduler
}

// SetupTestStack wires every component on a fresh in-memory store.
func SetupTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	store := repository.NewMemoryRepo()

	eventHub := hub.New(store, nil)
	notifier := dispatcher.New(store, eventHub, nil, cfg.Dispatcher.QueueSize)
	notifier.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = notifier.Stop(ctx)
	})

	reg := registry.New(store)
	bidLedger := ledger.New(store, eventHub, notifier, nil, ledger.Config{
		MinIncrement:   cfg.Auction.MinIncrement,
		BidWaitTimeout: cfg.Auction.BidWaitTimeout.Std(),
	})
	settler := scheduler.New(
		scheduler.Config{Interval: time.Hour, Concurrency: cfg.Scheduler.Concurrency},
		reg, store, eventHub, notifier, nil,
	)

	h := handler.NewAuctionHandler(bidLedger, reg, notifier)
	ws := server.NewWSHandler(eventHub, reg, bidLedger, cfg.Hub.WriteTimeout.Std())
	router := server.SetupRouter(cfg, h, ws)

	return &testStack{router: router, store: store, settler: settler}
}

// ExecuteRequestAndParse executes an HTTP request on the stack's router and
// parses the JSON response body.
func (s *testStack) ExecuteRequestAndParse(t *testing.T, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// CreateAuction creates an auction through the API and returns its ID.
func (s *testStack) CreateAuction(t *testing.T, sellerID, title string, startingPrice int64, deadline time.Time) string {
	t.Helper()

	resp, w := s.ExecuteRequestAndParse(t, "POST", "/auctions", map[string]any{
		"seller_id":      sellerID,
		"title":          title,
		"starting_price": startingPrice,
		"deadline":       deadline.UTC().Format(time.RFC3339),
	})
	if w.Code != 201 {
		t.Fatalf("failed to create auction: status %d body %v", w.Code, resp)
	}
	return resp["data"].(map[string]any)["auction_id"].(string)
}

// PlaceBid submits a bid through the API.
func (s *testStack) PlaceBid(t *testing.T, auctionID, bidderID string, amount int64) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	return s.ExecuteRequestAndParse(t, "POST", "/bids", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"amount":     amount,
	})
}
