package integrationtests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	model "github.com/uizzuu/ddauction-project-sub000/internal/models"
)

func TestCreateAuctionAPI(t *testing.T) {
	tests := []struct {
		name       string
		request    any
		wantStatus int
	}{
		{
			name: "Valid_Auction",
			request: map[string]any{
				"seller_id":      "seller1",
				"title":          "vintage lamp",
				"starting_price": 1000,
				"deadline":       time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "Past_Deadline",
			request: map[string]any{
				"seller_id":      "seller1",
				"title":          "vintage lamp",
				"starting_price": 1000,
				"deadline":       time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "Missing_Seller",
			request: map[string]any{
				"title":          "vintage lamp",
				"starting_price": 1000,
				"deadline":       time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Invalid_JSON",
			request:    "{seller_id: 'missing quotes'}",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack := SetupTestStack(t)
			resp, w := stack.ExecuteRequestAndParse(t, http.MethodPost, "/auctions", tt.request)
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.NotEmpty(t, data["auction_id"])
				require.Equal(t, "ACTIVE", data["status"])
				require.Equal(t, float64(1000), data["current_price"])
			}
		})
	}
}

// TestBiddingFlow walks the happy path of one auction: too-low opening
// attempt, two competing bidders, deterministic outbid notification.
func TestBiddingFlow(t *testing.T) {
	stack := SetupTestStack(t)
	auctionID := stack.CreateAuction(t, "seller1", "vintage lamp", 1000, time.Now().Add(time.Hour))

	// Amount equal to the starting price is below starting price + increment.
	resp, w := stack.PlaceBid(t, auctionID, "user2", 1000)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "BidTooLow", resp["kind"])
	require.Equal(t, float64(1100), resp["min_required"])

	resp, w = stack.PlaceBid(t, auctionID, "user2", 1100)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, float64(1100), resp["data"].(map[string]any)["amount"])

	// A second bid of the same amount loses the tie.
	resp, w = stack.PlaceBid(t, auctionID, "user3", 1100)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "BidTooLow", resp["kind"])
	require.Equal(t, float64(1200), resp["min_required"])

	resp, w = stack.PlaceBid(t, auctionID, "user3", 1200)
	require.Equal(t, http.StatusCreated, w.Code)

	// Current price follows the highest accepted bid.
	resp, w = stack.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1200), resp["data"].(map[string]any)["current_price"])

	// Bid list is highest first.
	resp, w = stack.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bids := resp["data"].([]any)
	require.Len(t, bids, 2)
	require.Equal(t, float64(1200), bids[0].(map[string]any)["amount"])
	require.Equal(t, float64(1100), bids[1].(map[string]any)["amount"])

	// user2 was outbid and the seller saw both bids.
	require.Eventually(t, func() bool {
		resp, _ := stack.ExecuteRequestAndParse(t, http.MethodGet, "/users/user2/notifications", nil)
		return len(resp["data"].([]any)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, w = stack.ExecuteRequestAndParse(t, http.MethodGet, "/users/user2/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	notifications := resp["data"].([]any)
	require.Equal(t, string(model.NotifyOutbid), notifications[0].(map[string]any)["category"])

	require.Eventually(t, func() bool {
		resp, _ := stack.ExecuteRequestAndParse(t, http.MethodGet, "/users/seller1/notifications", nil)
		return len(resp["data"].([]any)) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSelfBidRejectedAPI(t *testing.T) {
	stack := SetupTestStack(t)
	auctionID := stack.CreateAuction(t, "seller1", "vintage lamp", 1000, time.Now().Add(time.Hour))

	resp, w := stack.PlaceBid(t, auctionID, "seller1", 1100)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "SelfBidForbidden", resp["kind"])

	// Rejection leaves no trace in the bid list.
	resp, w = stack.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp["data"].([]any))
}

func TestBidOnUnknownAuctionAPI(t *testing.T) {
	stack := SetupTestStack(t)

	resp, w := stack.PlaceBid(t, "nonexistent", "user2", 1100)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NotFound", resp["kind"])
}

// TestSettlementFlow drives an auction with bids through settlement and
// checks the winner, the terminal status and the notifications.
func TestSettlementFlow(t *testing.T) {
	stack := SetupTestStack(t)
	auctionID := stack.CreateAuction(t, "seller1", "vintage lamp", 1000, time.Now().Add(time.Hour))

	_, w := stack.PlaceBid(t, auctionID, "user2", 1100)
	require.Equal(t, http.StatusCreated, w.Code)
	_, w = stack.PlaceBid(t, auctionID, "user3", 1150)
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, stack.settler.Finalize(auctionID))

	resp, w := stack.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]any)
	require.Equal(t, "CLOSED", data["status"])
	require.Equal(t, "user3", data["winner_id"])
	require.Equal(t, float64(1150), data["current_price"])

	// Exactly one bid carries the winning flag.
	resp, w = stack.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bids := resp["data"].([]any)
	require.Len(t, bids, 2)
	require.True(t, bids[0].(map[string]any)["is_winning"].(bool))
	require.False(t, bids[1].(map[string]any)["is_winning"].(bool))

	// Bidding after settlement is rejected as closed.
	rejection, w := stack.PlaceBid(t, auctionID, "user4", 2000)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "AuctionClosed", rejection["kind"])

	// Winner got WIN, the losing bidder got AUCTION_CLOSED.
	require.Eventually(t, func() bool {
		resp, _ := stack.ExecuteRequestAndParse(t, http.MethodGet, "/users/user3/notifications", nil)
		for _, raw := range resp["data"].([]any) {
			if raw.(map[string]any)["category"] == string(model.NotifyWin) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		resp, _ := stack.ExecuteRequestAndParse(t, http.MethodGet, "/users/user2/notifications", nil)
		for _, raw := range resp["data"].([]any) {
			if raw.(map[string]any)["category"] == string(model.NotifyAuctionClosed) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

// TestExpiryWithoutBids settles an auction nobody bid on.
func TestExpiryWithoutBids(t *testing.T) {
	stack := SetupTestStack(t)
	auctionID := stack.CreateAuction(t, "seller1", "vintage lamp", 1000, time.Now().Add(time.Hour))

	require.NoError(t, stack.settler.Finalize(auctionID))

	resp, w := stack.ExecuteRequestAndParse(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]any)
	require.Equal(t, "EXPIRED_NO_BIDS", data["status"])
	require.Empty(t, data["winner_id"])
}

func TestNotificationReadFlow(t *testing.T) {
	stack := SetupTestStack(t)
	auctionID := stack.CreateAuction(t, "seller1", "vintage lamp", 1000, time.Now().Add(time.Hour))

	_, w := stack.PlaceBid(t, auctionID, "user2", 1100)
	require.Equal(t, http.StatusCreated, w.Code)

	var notificationID string
	require.Eventually(t, func() bool {
		resp, _ := stack.ExecuteRequestAndParse(t, http.MethodGet, "/users/seller1/notifications", nil)
		list := resp["data"].([]any)
		if len(list) != 1 {
			return false
		}
		notificationID = list[0].(map[string]any)["notification_id"].(string)
		return true
	}, 2*time.Second, 10*time.Millisecond)

	_, w = stack.ExecuteRequestAndParse(t, http.MethodPut, "/notifications/"+notificationID+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp, _ := stack.ExecuteRequestAndParse(t, http.MethodGet, "/users/seller1/notifications", nil)
	require.True(t, resp["data"].([]any)[0].(map[string]any)["read"].(bool))

	_, w = stack.ExecuteRequestAndParse(t, http.MethodPut, "/notifications/nonexistent/read", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	stack := SetupTestStack(t)
	resp, w := stack.ExecuteRequestAndParse(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", resp["status"])
}
