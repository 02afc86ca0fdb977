package paymentprovider

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"github.com/magabrotheeeer/music-billing/internal/models"
)

// UserIDMetadataKey: ключ metadata клиента Stripe с идентификатором пользователя приложения.
const UserIDMetadataKey = "supabaseUUID"

// ProductFromStripe переводит продукт Stripe в Product.
func ProductFromStripe(p *stripe.Product) *Product {
	return &Product{
		ID:          p.ID,
		Active:      p.Active,
		Name:        p.Name,
		Description: p.Description,
		Images:      p.Images,
		Metadata:    p.Metadata,
	}
}

// PriceFromStripe переводит цену Stripe в Price. Для тарифицированных цен и цен
// с произвольной суммой UnitAmount остаётся nil.
func PriceFromStripe(p *stripe.Price) *Price {
	res := &Price{
		ID:       p.ID,
		Active:   p.Active,
		Currency: string(p.Currency),
		Nickname: p.Nickname,
		Type:     string(p.Type),
		Metadata: p.Metadata,
	}
	if p.Product != nil {
		res.ProductID = p.Product.ID
	}
	if p.BillingScheme != stripe.PriceBillingSchemeTiered && p.CustomUnitAmount == nil {
		amount := p.UnitAmount
		res.UnitAmount = &amount
	}
	if p.Recurring != nil {
		res.Recurring = &Recurring{
			Interval:        string(p.Recurring.Interval),
			IntervalCount:   p.Recurring.IntervalCount,
			TrialPeriodDays: p.Recurring.TrialPeriodDays,
		}
	}
	return res
}

// SubscriptionFromStripe переводит подписку Stripe в Subscription.
func SubscriptionFromStripe(s *stripe.Subscription) (*Subscription, error) {
	res := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		Metadata:          s.Metadata,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		CancelAt:          s.CancelAt,
		CanceledAt:        s.CanceledAt,
		Created:           s.Created,
		EndedAt:           s.EndedAt,
		TrialStart:        s.TrialStart,
		TrialEnd:          s.TrialEnd,
	}
	if s.Customer != nil {
		res.CustomerID = s.Customer.ID
	}
	if s.Items != nil {
		for _, it := range s.Items.Data {
			if it == nil {
				continue
			}
			item := SubscriptionItem{
				ID:                 it.ID,
				Quantity:           it.Quantity,
				CurrentPeriodStart: it.CurrentPeriodStart,
				CurrentPeriodEnd:   it.CurrentPeriodEnd,
			}
			if it.Price != nil {
				item.PriceID = it.Price.ID
			}
			res.Items = append(res.Items, item)
		}
	}
	if s.DefaultPaymentMethod != nil {
		pm, err := PaymentMethodFromStripe(s.DefaultPaymentMethod)
		if err != nil {
			return nil, err
		}
		res.DefaultPaymentMethod = pm
	}
	return res, nil
}

// PaymentMethodFromStripe переводит способ оплаты Stripe в PaymentMethod.
// В Details попадает вложенный объект, имя которого совпадает с типом способа оплаты.
func PaymentMethodFromStripe(pm *stripe.PaymentMethod) (*PaymentMethod, error) {
	const op = "paymentprovider.PaymentMethodFromStripe"
	res := &PaymentMethod{
		ID:   pm.ID,
		Type: string(pm.Type),
	}
	if pm.Customer != nil {
		res.CustomerID = pm.Customer.ID
	}
	if bd := pm.BillingDetails; bd != nil {
		res.BillingDetails = BillingDetails{
			Name:  bd.Name,
			Phone: bd.Phone,
			Email: bd.Email,
		}
		if bd.Address != nil {
			res.BillingDetails.Address = &models.Address{
				City:       bd.Address.City,
				Country:    bd.Address.Country,
				Line1:      bd.Address.Line1,
				Line2:      bd.Address.Line2,
				PostalCode: bd.Address.PostalCode,
				State:      bd.Address.State,
			}
		}
	}
	if res.Type == "" {
		return res, nil
	}

	raw, err := json.Marshal(pm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if details, ok := fields[res.Type]; ok && string(details) != "null" {
		res.Details = details
	}
	return res, nil
}
