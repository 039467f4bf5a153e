package domain

import "encoding/json"

// DeliveryResult records the outcome of one outbound send. For webhooks it
// mirrors the HTTP response; for mail it carries the provider response.
// An endpoint-level rejection (4xx/5xx, bounce) is still a result, not an
// error: the attempt happened and must be auditable.
type DeliveryResult struct {
	Status     int               `json:"status,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	Redirected bool              `json:"redirected,omitempty"`
	URL        string            `json:"url,omitempty"`
	Type       string            `json:"type,omitempty"`
	MessageID  string            `json:"messageId,omitempty"`
}

// InvocationMetadata is the full context of a delivery attempt.
type InvocationMetadata struct {
	Subscription Subscription    `json:"subscription"`
	Details      DeliveryDetails `json:"details"`
	Result       DeliveryResult  `json:"result"`
}

// InvocationLogEntry is the durable, append-only record of one delivery
// attempt. The delivery workers produce it; the logger persists it.
type InvocationLogEntry struct {
	SubscriptionID string             `json:"subscriptionId"`
	Metadata       InvocationMetadata `json:"metadata"`
}

// MarshalMetadata renders the metadata for storage in a JSON column.
func (e InvocationLogEntry) MarshalMetadata() ([]byte, error) {
	return json.Marshal(e.Metadata)
}
