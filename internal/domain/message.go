package domain

import "time"

// InboundMessage is one chat message delivered to the bridge by a channel.
type InboundMessage struct {
	Channel       string // whatsapp | telegram
	SenderAddress string // platform address the reply goes back to
	Body          string
	ReceivedAt    time.Time
}

// Result is the outcome of handling one InboundMessage.
type Result struct {
	Status  int    // HTTP status reported to the webhook caller
	Action  string // classified command, empty when the sender was rejected
	Sent    bool   // true once the reply was accepted by the transport
	Receipt DeliveryReceipt
	Err     error
}
