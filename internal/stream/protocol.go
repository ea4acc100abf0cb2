package stream

import (
	"time"

	"github.com/janm2001/cryptofeed/internal/model"
)

// Message type discriminators. Key casing matches the legacy clients.
const (
	TypeAuth          = "Auth"
	TypePriceRequest  = "PriceRequest"
	TypeSubscribe     = "Subscribe"
	TypeUnsubscribe   = "Unsubscribe"
	TypeHeartbeat     = "Heartbeat"
	TypeAck           = "Ack"
	TypePriceResponse = "PriceResponse"
)

// Envelope is the tagged union for all client→server messages, decoded in
// one pass. Only the fields relevant to MessageType are populated.
type Envelope struct {
	MessageType   string   `json:"MessageType"`
	Token         string   `json:"Token,omitempty"`
	CoinIds       []string `json:"CoinIds,omitempty"`
	Currency      string   `json:"Currency,omitempty"`
	Channels      []string `json:"Channels,omitempty"`
	CorrelationId string   `json:"CorrelationId,omitempty"`
}

// Ack is the server reply for control messages and protocol errors.
type Ack struct {
	MessageType   string `json:"MessageType"`
	Success       bool   `json:"Success"`
	Error         string `json:"Error,omitempty"`
	CorrelationId string `json:"CorrelationId,omitempty"`
}

// Heartbeat is the server reply to a client heartbeat.
type Heartbeat struct {
	MessageType string `json:"MessageType"`
}

// PricePayload is one coin snapshot on the wire.
type PricePayload struct {
	CoinId            string    `json:"CoinId"`
	Symbol            string    `json:"Symbol"`
	Name              string    `json:"Name"`
	CurrentPrice      float64   `json:"CurrentPrice"`
	MarketCapRank     int       `json:"MarketCapRank"`
	MarketCap         float64   `json:"MarketCap"`
	TotalVolume       float64   `json:"TotalVolume"`
	PriceChangePct24h float64   `json:"PriceChangePct24h"`
	CirculatingSupply float64   `json:"CirculatingSupply"`
	LastUpdated       time.Time `json:"LastUpdated"`
}

// PriceResponse carries snapshots to the client, either as a reply to a
// PriceRequest (echoing its correlation id) or as a periodic broadcast.
type PriceResponse struct {
	MessageType   string         `json:"MessageType"`
	Prices        []PricePayload `json:"Prices"`
	CorrelationId string         `json:"CorrelationId,omitempty"`
}

// NewAck builds a success Ack echoing the correlation id.
func NewAck(correlationID string) Ack {
	return Ack{MessageType: TypeAck, Success: true, CorrelationId: correlationID}
}

// NewErrorAck builds a failure Ack with an error description.
func NewErrorAck(correlationID, errMsg string) Ack {
	return Ack{MessageType: TypeAck, Success: false, Error: errMsg, CorrelationId: correlationID}
}

// NewPriceResponse converts snapshots into a wire response.
func NewPriceResponse(snapshots []model.PriceSnapshot, correlationID string) PriceResponse {
	prices := make([]PricePayload, 0, len(snapshots))
	for _, s := range snapshots {
		prices = append(prices, PricePayload{
			CoinId:            s.CoinID,
			Symbol:            s.Symbol,
			Name:              s.Name,
			CurrentPrice:      s.CurrentPrice,
			MarketCapRank:     s.MarketCapRank,
			MarketCap:         s.MarketCap,
			TotalVolume:       s.TotalVolume,
			PriceChangePct24h: s.PriceChangePct24h,
			CirculatingSupply: s.CirculatingSupply,
			LastUpdated:       s.LastUpdated,
		})
	}
	return PriceResponse{MessageType: TypePriceResponse, Prices: prices, CorrelationId: correlationID}
}
