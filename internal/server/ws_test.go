package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/uizzuu/ddauction-project-sub000/internal/hub"
	"github.com/uizzuu/ddauction-project-sub000/internal/ledger"
	model "github.com/uizzuu/ddauction-project-sub000/internal/models"
	"github.com/uizzuu/ddauction-project-sub000/internal/registry"
	"github.com/uizzuu/ddauction-project-sub000/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// wsEvent is a superset of every frame the live channel emits, so one read
// helper covers all event types.
type wsEvent struct {
	Type         string             `json:"type"`
	AuctionID    string             `json:"auction_id"`
	Bids         []hub.BidView      `json:"bids"`
	Kind         string             `json:"kind"`
	Message      string             `json:"message"`
	MinRequired  *int64             `json:"min_required"`
	WinnerID     *string            `json:"winner_id"`
	FinalAmount  *int64             `json:"final_amount"`
	Notification model.Notification `json:"notification"`
}

type wsStack struct {
	store *repository.MemoryRepo
	hub   *hub.Hub
	srv   *httptest.Server
}

func newWSStack(t *testing.T) *wsStack {
	t.Helper()

	store := repository.NewMemoryRepo()
	h := hub.New(store, nil)
	led := ledger.New(store, h, nil, nil, ledger.Config{
		MinIncrement:   100,
		BidWaitTimeout: time.Second,
	})
	handler := NewWSHandler(h, registry.New(store), led, time.Second)

	router := gin.New()
	router.GET("/ws/auctions/:auction_id", handler.Handle)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &wsStack{store: store, hub: h, srv: srv}
}

func (s *wsStack) seedAuction(t *testing.T, auctionID, sellerID string, startingPrice int64) {
	t.Helper()
	require.NoError(t, s.store.CreateAuction(model.Auction{
		AuctionID:     auctionID,
		SellerID:      sellerID,
		Title:         auctionID,
		Status:        model.AuctionActive,
		StartingPrice: startingPrice,
		Deadline:      time.Now().Add(time.Hour),
		CreatedAt:     time.Now().UTC(),
	}))
}

func (s *wsStack) dial(t *testing.T, auctionID, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/auctions/" + auctionID + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event wsEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func submitBid(t *testing.T, conn *websocket.Conn, bidderID string, amount int64) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"bidder_id": bidderID,
		"amount":    amount,
	}))
}

func TestWSHandler_SubscribeSendsSnapshot(t *testing.T) {
	stack := newWSStack(t)
	stack.seedAuction(t, "a1", "seller1", 1000)
	now := time.Now().UTC()
	require.NoError(t, stack.store.InsertBid(model.Bid{BidID: "b1", AuctionID: "a1", BidderID: "user2", Amount: 1100, CreatedAt: now}))
	require.NoError(t, stack.store.InsertBid(model.Bid{BidID: "b2", AuctionID: "a1", BidderID: "user3", Amount: 1250, CreatedAt: now.Add(time.Second)}))

	conn := stack.dial(t, "a1", "")

	snapshot := readEvent(t, conn)
	require.Equal(t, hub.EventBidList, snapshot.Type)
	require.Equal(t, "a1", snapshot.AuctionID)
	require.Len(t, snapshot.Bids, 2)
	require.Equal(t, "b2", snapshot.Bids[0].BidID, "highest first")
}

func TestWSHandler_UnknownAuctionRejectsHandshake(t *testing.T) {
	stack := newWSStack(t)

	url := "ws" + strings.TrimPrefix(stack.srv.URL, "http") + "/ws/auctions/missing"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Nil(t, conn)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestWSHandler_BidBroadcastReachesAllSubscribers(t *testing.T) {
	stack := newWSStack(t)
	stack.seedAuction(t, "a1", "seller1", 1000)

	conn1 := stack.dial(t, "a1", "")
	conn2 := stack.dial(t, "a1", "")
	readEvent(t, conn1) // snapshots
	readEvent(t, conn2)

	submitBid(t, conn1, "user2", 1100)

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		event := readEvent(t, conn)
		require.Equal(t, hub.EventBidList, event.Type)
		require.Len(t, event.Bids, 1)
		require.Equal(t, int64(1100), event.Bids[0].Amount)
		require.Equal(t, "user2", event.Bids[0].BidderID)
	}
}

func TestWSHandler_RejectionAnswersSubmitterOnly(t *testing.T) {
	stack := newWSStack(t)
	stack.seedAuction(t, "a1", "seller1", 1000)

	conn1 := stack.dial(t, "a1", "")
	conn2 := stack.dial(t, "a1", "")
	readEvent(t, conn1)
	readEvent(t, conn2)

	// Too low: starting price 1000 with increment 100 requires 1100
	submitBid(t, conn1, "user2", 1000)

	event := readEvent(t, conn1)
	require.Equal(t, hub.EventError, event.Type)
	require.Equal(t, "BidTooLow", event.Kind)
	require.NotNil(t, event.MinRequired)
	require.Equal(t, int64(1100), *event.MinRequired)

	// conn2 sees nothing until an accepted bid broadcasts: its next frame
	// is the bid list, proving the error stayed on the submitting conn.
	submitBid(t, conn1, "user2", 1100)
	event = readEvent(t, conn2)
	require.Equal(t, hub.EventBidList, event.Type)
	require.Len(t, event.Bids, 1)
}

func TestWSHandler_RejectionKinds(t *testing.T) {
	stack := newWSStack(t)
	stack.seedAuction(t, "a1", "seller1", 1000)

	conn := stack.dial(t, "a1", "")
	readEvent(t, conn)

	tests := []struct {
		name     string
		frame    map[string]any
		wantKind string
	}{
		{
			name:     "self_bid",
			frame:    map[string]any{"bidder_id": "seller1", "amount": int64(1100)},
			wantKind: "SelfBidForbidden",
		},
		{
			name:     "invalid_amount",
			frame:    map[string]any{"bidder_id": "user2", "amount": int64(-5)},
			wantKind: "Invalid",
		},
		{
			name:     "mismatched_channel",
			frame:    map[string]any{"auction_id": "other", "bidder_id": "user2", "amount": int64(1100)},
			wantKind: "Invalid",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tc.frame))
			event := readEvent(t, conn)
			require.Equal(t, hub.EventError, event.Type)
			require.Equal(t, tc.wantKind, event.Kind)
		})
	}
}

func TestWSHandler_ClosedEventDelivered(t *testing.T) {
	stack := newWSStack(t)
	stack.seedAuction(t, "a1", "seller1", 1000)

	conn := stack.dial(t, "a1", "")
	readEvent(t, conn)

	stack.hub.PublishClosed("a1", "user2", 1200)

	event := readEvent(t, conn)
	require.Equal(t, hub.EventClosed, event.Type)
	require.NotNil(t, event.WinnerID)
	require.Equal(t, "user2", *event.WinnerID)
	require.NotNil(t, event.FinalAmount)
	require.Equal(t, int64(1200), *event.FinalAmount)
}

func TestWSHandler_ClosedEventWithoutWinner(t *testing.T) {
	stack := newWSStack(t)
	stack.seedAuction(t, "a1", "seller1", 1000)

	conn := stack.dial(t, "a1", "")
	readEvent(t, conn)

	stack.hub.PublishClosed("a1", "", 0)

	event := readEvent(t, conn)
	require.Equal(t, hub.EventClosed, event.Type)
	require.Nil(t, event.WinnerID)
	require.Nil(t, event.FinalAmount)
}

func TestWSHandler_NotificationDelivery(t *testing.T) {
	stack := newWSStack(t)
	stack.seedAuction(t, "a1", "seller1", 1000)

	conn := stack.dial(t, "a1", "?user_id=user9")
	readEvent(t, conn)

	ok := stack.hub.NotifyUser("user9", model.Notification{
		NotificationID: "n1",
		RecipientID:    "user9",
		Category:       model.NotifyOutbid,
		Message:        "outbid",
		CreatedAt:      time.Now().UTC(),
	})
	require.True(t, ok)

	event := readEvent(t, conn)
	require.Equal(t, hub.EventNotification, event.Type)
	require.Equal(t, "n1", event.Notification.NotificationID)
	require.Equal(t, model.NotifyOutbid, event.Notification.Category)
}

func TestWSHandler_DisconnectUnsubscribes(t *testing.T) {
	stack := newWSStack(t)
	stack.seedAuction(t, "a1", "seller1", 1000)

	conn := stack.dial(t, "a1", "")
	readEvent(t, conn)
	require.Equal(t, 1, stack.hub.SubscriberCount("a1"))

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return stack.hub.SubscriberCount("a1") == 0
	}, 2*time.Second, 10*time.Millisecond, "read loop must unsubscribe on disconnect")
}
