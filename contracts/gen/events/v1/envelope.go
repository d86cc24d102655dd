// Package v1 is the generated-contract-only wire shape shared by the
// producer, the broker, and the consumer. It must stay backward compatible:
// add fields, never rename or remove them.
package v1

// TradeEventEnvelope is the JSON body exchanged on POST /orders (producer ->
// broker, id omitted) and on GET /orders/pending (broker -> consumer, id
// present). Unknown fields are ignored by the broker on decode. Every
// numeric-looking field is carried as a string; the broker never parses it.
type TradeEventEnvelope struct {
	ID           string `json:"id,omitempty"`
	SourceID     string `json:"source_id"`
	EventType    string `json:"event_type"`
	Timestamp    string `json:"timestamp"`
	Symbol       string `json:"symbol"`
	Direction    string `json:"direction,omitempty"`
	OrderType    string `json:"order_type,omitempty"`
	Volume       string `json:"volume,omitempty"`
	EntryPrice   string `json:"entry_price,omitempty"`
	TargetPrice  string `json:"target_price,omitempty"`
	StopLoss     string `json:"stop_loss,omitempty"`
	TakeProfit   string `json:"take_profit,omitempty"`
	ClosingPrice string `json:"closing_price,omitempty"`
	NetProfit    string `json:"net_profit,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

// Recognised event_type tags. Exact-case match.
const (
	EventPositionOpened          = "POSITION_OPENED"
	EventPositionClosed          = "POSITION_CLOSED"
	EventPositionModified        = "POSITION_MODIFIED"
	EventPendingOrderCreated     = "PENDING_ORDER_CREATED"
	EventPendingOrderCancelled   = "PENDING_ORDER_CANCELLED"
	EventPendingOrderFilled      = "PENDING_ORDER_FILLED"
)

// RecognisedEventTypes is the full accepted set, used by validation on the
// broker ingest path. The producer does not check event types before
// enqueueing.
var RecognisedEventTypes = map[string]bool{
	EventPositionOpened:        true,
	EventPositionClosed:        true,
	EventPositionModified:      true,
	EventPendingOrderCreated:   true,
	EventPendingOrderCancelled: true,
	EventPendingOrderFilled:    true,
}

// PayloadFields returns the opaque payload map carried verbatim by the
// broker, built from every optional trade field present on the
// envelope. Symbol is included because the broker treats it as part of the
// opaque payload once past the top-level dedup/ordering fields.
func (e TradeEventEnvelope) PayloadFields() map[string]string {
	fields := map[string]string{}
	add := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	add("symbol", e.Symbol)
	add("direction", e.Direction)
	add("order_type", e.OrderType)
	add("volume", e.Volume)
	add("entry_price", e.EntryPrice)
	add("target_price", e.TargetPrice)
	add("stop_loss", e.StopLoss)
	add("take_profit", e.TakeProfit)
	add("closing_price", e.ClosingPrice)
	add("net_profit", e.NetProfit)
	add("comment", e.Comment)
	return fields
}

// FromPayloadFields rebuilds the known optional fields from a stored payload
// map, for the broker -> consumer response path.
func FromPayloadFields(fields map[string]string) TradeEventEnvelope {
	return TradeEventEnvelope{
		Symbol:       fields["symbol"],
		Direction:    fields["direction"],
		OrderType:    fields["order_type"],
		Volume:       fields["volume"],
		EntryPrice:   fields["entry_price"],
		TargetPrice:  fields["target_price"],
		StopLoss:     fields["stop_loss"],
		TakeProfit:   fields["take_profit"],
		ClosingPrice: fields["closing_price"],
		NetProfit:    fields["net_profit"],
		Comment:      fields["comment"],
	}
}
