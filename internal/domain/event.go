package domain

// CheckoutEventKind вид события checkout-сессии (закрытое множество вариантов)
type CheckoutEventKind string

const (
	// CheckoutEventCompleted оплата завершена
	CheckoutEventCompleted CheckoutEventKind = "checkout.session.completed"

	// CheckoutEventExpired сессия истекла без оплаты
	CheckoutEventExpired CheckoutEventKind = "checkout.session.expired"

	// CheckoutEventUnknown нераспознанный тип события.
	// Stripe может прислать новый вид в любой момент; такие события
	// подтверждаются и игнорируются.
	CheckoutEventUnknown CheckoutEventKind = ""
)

// CheckoutEvent типизированное событие вебхука после проверки подписи
type CheckoutEvent struct {
	Kind          CheckoutEventKind `json:"kind"`
	EventID       string            `json:"event_id"`
	SessionID     string            `json:"session_id"`
	OrgID         string            `json:"org_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
}
