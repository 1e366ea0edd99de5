package websocket

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// WebSocketHandler upgrades live-auction connections and relays bid messages
// to the bidding engine.
type WebSocketHandler struct {
	bidEngine   *services.BidEngine
	auctions    domain.AuctionRepository
	connManager domain.ConnectionManager
	clock       domain.Clock
	log         logger.Logger
}

func NewWebSocketHandler(bidEngine *services.BidEngine, auctions domain.AuctionRepository,
	connManager domain.ConnectionManager, clock domain.Clock, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		bidEngine:   bidEngine,
		auctions:    auctions,
		connManager: connManager,
		clock:       clock,
		log:         log,
	}
}

func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	auctionID := c.Param("id")

	auction, err := h.auctions.GetAuction(c.Request().Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "auction not found")
		}
		h.log.Error("Failed to find auction", "error", err, "auction_id", auctionID)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load auction")
	}

	switch domain.ResolveStatus(auction, h.clock.Now()) {
	case domain.StatusEnded:
		return echo.NewHTTPError(http.StatusForbidden, "auction has already ended")
	case domain.StatusDeleted:
		return echo.NewHTTPError(http.StatusNotFound, "auction not found")
	}

	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return nil
	}

	wsConn := NewConnection(conn, userID, auctionID, h.log)

	if err := h.connManager.RegisterConnection(userID, auctionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return nil
	}

	go h.handleMessages(wsConn, userID, auctionID)
	return nil
}

func (h *WebSocketHandler) handleMessages(conn *Connection, userID, auctionID string) {
	defer func() {
		h.connManager.UnregisterConnection(userID, auctionID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Connection read failed", "user_id", userID, "auction_id", auctionID, "error", err)
			}
			return
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			continue
		}

		switch msgType {
		case "place_bid":
			h.handleBidMessage(conn, userID, auctionID, msg)
		case "ping":
			conn.Send(map[string]string{"type": "pong"})
		}
	}
}

func (h *WebSocketHandler) handleBidMessage(conn *Connection, userID, auctionID string, msg map[string]interface{}) {
	amount, ok := msg["amount"].(float64)
	if !ok {
		conn.Send(map[string]string{"type": "error", "message": "invalid amount"})
		return
	}

	bid, err := h.bidEngine.PlaceBid(context.Background(), auctionID, userID, amount)
	if err != nil {
		conn.Send(map[string]string{"type": "error", "message": bidErrorMessage(err)})
		return
	}

	conn.Send(map[string]interface{}{
		"type":       "bid_accepted",
		"bid_id":     bid.ID,
		"auction_id": bid.AuctionID,
		"amount":     bid.Amount,
	})
}

func bidErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "auction not found"
	case errors.Is(err, domain.ErrInvalidState):
		return "auction is not accepting bids"
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, domain.ErrConflict):
		return "auction is busy, retry your bid"
	default:
		return "failed to place bid"
	}
}
