package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"
)

type BidHandler struct {
	bidEngine      *services.BidEngine
	auctionManager *services.AuctionManager
	log            logger.Logger
}

func NewBidHandler(bidEngine *services.BidEngine, auctionManager *services.AuctionManager, log logger.Logger) *BidHandler {
	return &BidHandler{
		bidEngine:      bidEngine,
		auctionManager: auctionManager,
		log:            log,
	}
}

type PlaceBidRequest struct {
	Amount float64 `json:"amount"`
}

func (h *BidHandler) PlaceBid(c echo.Context) error {
	bidder, err := callerID(c)
	if err != nil {
		return err
	}

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	auctionID := c.Param("id")
	bid, err := h.bidEngine.PlaceBid(c.Request().Context(), auctionID, bidder, req.Amount)
	if err != nil {
		// Lifecycle rejections on the bid path read as plain bad requests,
		// not resource conflicts.
		if errors.Is(err, domain.ErrInvalidState) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		h.log.Info("Bid rejected", "auction_id", auctionID, "bidder", bidder, "error", err)
		return domainError(c, err)
	}

	h.log.Info("Bid placed", "auction_id", auctionID, "bid_id", bid.ID, "amount", bid.Amount)
	return c.JSON(http.StatusCreated, bid)
}

func (h *BidHandler) ParticipatedBids(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	bids, err := h.auctionManager.ParticipatedBids(c.Request().Context(), caller)
	if err != nil {
		h.log.Error("Failed to load bid history", "user_id", caller, "error", err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, bids)
}

func (h *BidHandler) SellerBidHistory(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	bids, err := h.auctionManager.SellerBidHistory(c.Request().Context(), caller)
	if err != nil {
		h.log.Error("Failed to load seller bid history", "user_id", caller, "error", err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, bids)
}

func (h *BidHandler) WinnerNotifications(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	winners, err := h.auctionManager.WinnerNotifications(c.Request().Context(), caller)
	if err != nil {
		h.log.Error("Failed to load winner notifications", "user_id", caller, "error", err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, winners)
}
