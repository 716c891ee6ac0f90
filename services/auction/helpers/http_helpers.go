package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

// Wire error kinds for the bid-submit path.
const (
	KindNotFound         = "NotFound"
	KindSelfBidForbidden = "SelfBidForbidden"
	KindAuctionClosed    = "AuctionClosed"
	KindBidTooLow        = "BidTooLow"
	KindBusy             = "Busy"
	KindInvalid          = "Invalid"
	KindInternal         = "Internal"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload", map[string]any{"kind": KindInvalid})
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status, wire kind and
// message. Validation rejections are expected outcomes, not failures; only
// the Internal kind represents a fault.
func MapErrorToHTTP(err error) (int, string, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, KindNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrNotificationNotFound):
		return http.StatusNotFound, KindNotFound, "notification not found"
	case errors.Is(err, auctionerrors.ErrSelfBidForbidden):
		return http.StatusForbidden, KindSelfBidForbidden, "seller may not bid on own auction"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, KindAuctionClosed, "auction is closed for bidding"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, KindBidTooLow, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrBusy):
		return http.StatusServiceUnavailable, KindBusy, "auction is busy, retry"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, KindInvalid, "invalid request details"
	default:
		return http.StatusInternalServerError, KindInternal, "internal server error"
	}
}

// ErrorFields builds the extra response fields for a rejected operation:
// the wire kind, plus min_required for bid-too-low rejections.
func ErrorFields(kind string, err error) map[string]any {
	fields := map[string]any{"kind": kind}
	if min, ok := auctionerrors.MinRequired(err); ok {
		fields["min_required"] = min
	}
	return fields
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
