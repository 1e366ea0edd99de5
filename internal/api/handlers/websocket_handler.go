package handlers

import (
	"github.com/labstack/echo/v4"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/infrastructure/websocket"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"
)

type WebSocketHandlers struct {
	wsHandler *websocket.WebSocketHandler
}

func NewWebSocketHandlers(bidEngine *services.BidEngine, auctions domain.AuctionRepository,
	connManager *websocket.ConnectionManager, clock domain.Clock, log logger.Logger) *WebSocketHandlers {
	return &WebSocketHandlers{
		wsHandler: websocket.NewWebSocketHandler(bidEngine, auctions, connManager, clock, log),
	}
}

func (h *WebSocketHandlers) HandleConnection(c echo.Context) error {
	return h.wsHandler.HandleConnection(c)
}
