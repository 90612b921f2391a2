package dto

// WebhookAck is returned to the payment gateway once an event is handled.
type WebhookAck struct {
	Received bool   `json:"received"`
	Type     string `json:"type"`
	Applied  bool   `json:"applied"`
}
