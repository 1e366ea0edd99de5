package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"
)

type AuctionHandler struct {
	auctionManager *services.AuctionManager
	log            logger.Logger
}

func NewAuctionHandler(auctionManager *services.AuctionManager, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctionManager: auctionManager,
		log:            log,
	}
}

type CreateAuctionRequest struct {
	Code              string    `json:"code"`
	ParticipationCode string    `json:"participation_code"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	Currency          string    `json:"currency"`
	Type              string    `json:"auction_type"`
	StartingPrice     float64   `json:"starting_price"`
	BidIncrement      float64   `json:"bid_increment"`
	ReservePrice      float64   `json:"reserve_price"`
	MinimumPrice      float64   `json:"minimum_price"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

type UpdateAuctionRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Category      *string    `json:"category"`
	Currency      *string    `json:"currency"`
	Type          *string    `json:"auction_type"`
	StartingPrice *float64   `json:"starting_price"`
	BidIncrement  *float64   `json:"bid_increment"`
	ReservePrice  *float64   `json:"reserve_price"`
	MinimumPrice  *float64   `json:"minimum_price"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
}

type UpdateEndTimeRequest struct {
	EndTime time.Time `json:"end_time"`
}

// AuctionView is the public shape of an auction. For sealed auctions the
// running price, highest bidder and ledger stay hidden from everyone but the
// seller until the auction ends.
type AuctionView struct {
	ID                   string       `json:"id"`
	Code                 string       `json:"code"`
	Title                string       `json:"title"`
	Description          string       `json:"description"`
	Category             string       `json:"category"`
	Currency             string       `json:"currency"`
	Type                 string       `json:"auction_type"`
	StartingPrice        float64      `json:"starting_price"`
	CurrentBid           *float64     `json:"current_bid,omitempty"`
	BidIncrement         float64      `json:"bid_increment"`
	StartTime            time.Time    `json:"start_time"`
	EndTime              time.Time    `json:"end_time"`
	Seller               string       `json:"seller"`
	CurrentHighestBidder string       `json:"current_highest_bidder,omitempty"`
	Status               string       `json:"status"`
	Bids                 []domain.Bid `json:"bids,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

func newAuctionView(a *domain.Auction, caller string) AuctionView {
	view := AuctionView{
		ID:            a.ID,
		Code:          a.Code,
		Title:         a.Title,
		Description:   a.Description,
		Category:      a.Category,
		Currency:      a.Currency,
		Type:          string(a.Type),
		StartingPrice: a.StartingPrice,
		BidIncrement:  a.BidIncrement,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Seller:        a.Seller,
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}

	masked := a.Type.HidesRunningPrice() && a.Status != domain.StatusEnded && caller != a.Seller
	if !masked {
		currentBid := a.CurrentBid
		view.CurrentBid = &currentBid
		view.CurrentHighestBidder = a.CurrentHighestBidder
		view.Bids = a.Bids
	}
	return view
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	seller, err := callerID(c)
	if err != nil {
		return err
	}

	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	auction, err := h.auctionManager.CreateAuction(c.Request().Context(), seller, services.CreateAuctionInput{
		Code:              req.Code,
		ParticipationCode: req.ParticipationCode,
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Currency:          req.Currency,
		Type:              domain.AuctionType(req.Type),
		StartingPrice:     req.StartingPrice,
		BidIncrement:      req.BidIncrement,
		ReservePrice:      req.ReservePrice,
		MinimumPrice:      req.MinimumPrice,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
	})
	if err != nil {
		h.log.Error("Failed to create auction", "seller", seller, "error", err)
		return domainError(c, err)
	}

	h.log.Info("Auction created", "auction_id", auction.ID, "seller", seller)
	return c.JSON(http.StatusCreated, newAuctionView(auction, seller))
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	filter := domain.AuctionFilter{
		Category: c.QueryParam("category"),
		Status:   domain.AuctionStatus(c.QueryParam("status")),
		Seller:   c.QueryParam("seller"),
	}

	auctions, err := h.auctionManager.ListAuctions(c.Request().Context(), filter)
	if err != nil {
		h.log.Error("Failed to list auctions", "error", err)
		return domainError(c, err)
	}

	caller := c.Request().Header.Get(userIDHeader)
	views := make([]AuctionView, 0, len(auctions))
	for _, a := range auctions {
		views = append(views, newAuctionView(a, caller))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auction, err := h.auctionManager.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}

	caller := c.Request().Header.Get(userIDHeader)
	return c.JSON(http.StatusOK, newAuctionView(auction, caller))
}

func (h *AuctionHandler) UpdateAuction(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	var req UpdateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	in := services.UpdateAuctionInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Currency:      req.Currency,
		StartingPrice: req.StartingPrice,
		BidIncrement:  req.BidIncrement,
		ReservePrice:  req.ReservePrice,
		MinimumPrice:  req.MinimumPrice,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	}
	if req.Type != nil {
		t := domain.AuctionType(*req.Type)
		in.Type = &t
	}

	auction, err := h.auctionManager.UpdateAuction(c.Request().Context(), c.Param("id"), caller, in)
	if err != nil {
		h.log.Error("Failed to update auction", "auction_id", c.Param("id"), "error", err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, newAuctionView(auction, caller))
}

func (h *AuctionHandler) UpdateEndTime(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	var req UpdateEndTimeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	auction, err := h.auctionManager.UpdateEndTime(c.Request().Context(), c.Param("id"), caller, req.EndTime)
	if err != nil {
		h.log.Error("Failed to update end time", "auction_id", c.Param("id"), "error", err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, newAuctionView(auction, caller))
}

func (h *AuctionHandler) DeleteAuction(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	if err := h.auctionManager.DeleteAuction(c.Request().Context(), c.Param("id"), caller); err != nil {
		h.log.Error("Failed to delete auction", "auction_id", c.Param("id"), "error", err)
		return domainError(c, err)
	}

	h.log.Info("Auction deleted", "auction_id", c.Param("id"), "seller", caller)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuctionHandler) EndAuctionNow(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	winner, err := h.auctionManager.EndAuctionNow(c.Request().Context(), c.Param("id"), caller)
	if err != nil {
		h.log.Error("Failed to end auction", "auction_id", c.Param("id"), "error", err)
		return domainError(c, err)
	}

	response := map[string]interface{}{
		"auction_id": c.Param("id"),
		"status":     string(domain.StatusEnded),
	}
	if winner != nil {
		response["winner"] = winner
	}
	return c.JSON(http.StatusOK, response)
}

func (h *AuctionHandler) GetStatus(c echo.Context) error {
	status, err := h.auctionManager.GetEffectiveStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"auction_id": c.Param("id"),
		"status":     string(status),
	})
}

func (h *AuctionHandler) GetWinner(c echo.Context) error {
	winner, err := h.auctionManager.GetWinner(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, winner)
}
