package domain

// DeliveryMethod selects which downstream worker handles a subscriber.
type DeliveryMethod string

const (
	DeliveryMethodWebhook DeliveryMethod = "WEBHOOK"
	DeliveryMethodEmail   DeliveryMethod = "EMAIL"
)

// DeliveryDetails carries the method-specific destination for a
// subscription. Exactly one side is populated, keyed by the subscription's
// Method.
type DeliveryDetails struct {
	URL         string `json:"url,omitempty"         db:"url"`
	ContentType string `json:"contentType,omitempty" db:"content_type"`
	Email       string `json:"email,omitempty"       db:"email"`
}

// Subscription is a read-only view of a subscriber row. Its lifecycle is
// owned by the CRUD layer; the pipeline only filters active rows by
// cursor (chain) ID and delivery method.
type Subscription struct {
	ID       string          `json:"id"       db:"id"`
	UserID   string          `json:"userId"   db:"user_id"`
	CursorID string          `json:"cursorId" db:"cursor_id"`
	Method   DeliveryMethod  `json:"method"   db:"method"`
	IsActive bool            `json:"isActive" db:"is_active"`
	Details  DeliveryDetails `json:"details"`
}

// MethodCounts is a single consistent snapshot of active subscriber counts
// per delivery method for one chain.
type MethodCounts struct {
	Webhook int64 `db:"webhook_count"`
	Email   int64 `db:"email_count"`
}

// Count returns the snapshot count for the given method.
func (c MethodCounts) Count(method DeliveryMethod) int64 {
	switch method {
	case DeliveryMethodWebhook:
		return c.Webhook
	case DeliveryMethodEmail:
		return c.Email
	default:
		return 0
	}
}
