package datagram

import "github.com/janm2001/cryptofeed/internal/model"

// Message type discriminators.
const (
	TypeSubscribe   = "Subscribe"
	TypeUnsubscribe = "Unsubscribe"
	TypeHeartbeat   = "Heartbeat"
	TypeAck         = "Ack"
	TypePriceUpdate = "PriceUpdate"
)

// Envelope is the tagged union for all client→server packets.
type Envelope struct {
	MessageType string `json:"MessageType"`
}

// Ack confirms (or rejects) a control packet.
type Ack struct {
	MessageType string `json:"MessageType"`
	Success     bool   `json:"Success"`
}

// PriceUpdate carries one coin per packet.
type PriceUpdate struct {
	MessageType string  `json:"MessageType"`
	CoinId      string  `json:"CoinId"`
	Symbol      string  `json:"Symbol"`
	Price       float64 `json:"Price"`
	Change24h   float64 `json:"Change24h"`
}

// NewPriceUpdate converts a snapshot into a wire update.
func NewPriceUpdate(s model.PriceSnapshot) PriceUpdate {
	return PriceUpdate{
		MessageType: TypePriceUpdate,
		CoinId:      s.CoinID,
		Symbol:      s.Symbol,
		Price:       s.CurrentPrice,
		Change24h:   s.PriceChangePct24h,
	}
}
