package stripe

import (
	"encoding/json"
	"fmt"

	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/stripe/stripe-go/v78"
)

// MapProduct преобразует продукт Stripe в доменную модель
func MapProduct(p *stripe.Product) domain.Product {
	product := domain.Product{
		ID:          p.ID,
		Active:      p.Active,
		Name:        p.Name,
		Description: p.Description,
		Metadata:    p.Metadata,
	}

	if len(p.Images) > 0 {
		product.Image = p.Images[0]
	}

	return product
}

// MapPrice преобразует цену Stripe в доменную модель.
// Рекуррентные поля переносятся в nullable поля только для recurring цен.
func MapPrice(p *stripe.Price) domain.Price {
	price := domain.Price{
		ID:         p.ID,
		Active:     p.Active,
		Currency:   string(p.Currency),
		Type:       domain.PriceType(p.Type),
		UnitAmount: p.UnitAmount,
		Metadata:   p.Metadata,
	}

	if p.Product != nil {
		price.ProductID = p.Product.ID
	}

	if p.Recurring != nil {
		interval := domain.PriceInterval(p.Recurring.Interval)
		intervalCount := p.Recurring.IntervalCount
		price.Interval = &interval
		price.IntervalCount = &intervalCount

		if p.Recurring.TrialPeriodDays > 0 {
			trialDays := p.Recurring.TrialPeriodDays
			price.TrialPeriodDays = &trialDays
		}
	}

	return price
}

// MapEvent преобразует проверенное событие Stripe в типизированное доменное
// событие. Нераспознанные типы отображаются в CheckoutEventUnknown, а не в
// ошибку: Stripe вводит новые виды событий без предупреждения.
func MapEvent(event stripe.Event) (domain.CheckoutEvent, error) {
	kind := domain.CheckoutEventUnknown
	switch string(event.Type) {
	case string(domain.CheckoutEventCompleted):
		kind = domain.CheckoutEventCompleted
	case string(domain.CheckoutEventExpired):
		kind = domain.CheckoutEventExpired
	}

	ce := domain.CheckoutEvent{
		Kind:    kind,
		EventID: event.ID,
	}

	if kind == domain.CheckoutEventUnknown {
		return ce, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return domain.CheckoutEvent{}, fmt.Errorf("failed to parse checkout session payload: %w", err)
	}

	ce.SessionID = session.ID
	ce.CustomerEmail = session.CustomerEmail
	if session.Metadata != nil {
		ce.OrgID = session.Metadata[metadataOrgIDKey]
		ce.UserID = session.Metadata[metadataUserIDKey]
	}

	return ce, nil
}
