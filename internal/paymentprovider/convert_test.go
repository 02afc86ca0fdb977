package paymentprovider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/magabrotheeeer/music-billing/internal/models"
)

func TestPriceFromStripe(t *testing.T) {
	tests := []struct {
		name           string
		in             *stripe.Price
		wantAmount     *int64
		wantRecurring  *Recurring
		wantProductID  string
	}{
		{
			name: "recurring per unit price",
			in: &stripe.Price{
				ID:            "price_1",
				Product:       &stripe.Product{ID: "prod_1"},
				Active:        true,
				Currency:      stripe.CurrencyUSD,
				Type:          stripe.PriceTypeRecurring,
				BillingScheme: stripe.PriceBillingSchemePerUnit,
				UnitAmount:    999,
				Recurring: &stripe.PriceRecurring{
					Interval:        stripe.PriceRecurringIntervalMonth,
					IntervalCount:   1,
					TrialPeriodDays: 7,
				},
			},
			wantAmount:    stripe.Int64(999),
			wantRecurring: &Recurring{Interval: "month", IntervalCount: 1, TrialPeriodDays: 7},
			wantProductID: "prod_1",
		},
		{
			name: "tiered price has no unit amount",
			in: &stripe.Price{
				ID:            "price_2",
				Product:       &stripe.Product{ID: "prod_1"},
				Type:          stripe.PriceTypeOneTime,
				BillingScheme: stripe.PriceBillingSchemeTiered,
			},
			wantProductID: "prod_1",
		},
		{
			name: "price without product",
			in: &stripe.Price{
				ID:         "price_3",
				Type:       stripe.PriceTypeOneTime,
				UnitAmount: 0,
			},
			wantAmount: stripe.Int64(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceFromStripe(tt.in)
			assert.Equal(t, tt.in.ID, got.ID)
			assert.Equal(t, tt.wantProductID, got.ProductID)
			assert.Equal(t, tt.wantAmount, got.UnitAmount)
			assert.Equal(t, tt.wantRecurring, got.Recurring)
		})
	}
}

func TestSubscriptionFromStripe(t *testing.T) {
	in := &stripe.Subscription{
		ID:       "sub_1",
		Customer: &stripe.Customer{ID: "cus_1"},
		Status:   stripe.SubscriptionStatusTrialing,
		Created:  1700000000,
		TrialEnd: 1700600000,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{ID: "si_1", Price: &stripe.Price{ID: "price_1"}, Quantity: 1, CurrentPeriodStart: 1700000000, CurrentPeriodEnd: 1702592000},
				{ID: "si_2", Price: &stripe.Price{ID: "price_2"}, Quantity: 3},
			},
		},
		DefaultPaymentMethod: &stripe.PaymentMethod{
			ID:       "pm_1",
			Type:     stripe.PaymentMethodTypeCard,
			Customer: &stripe.Customer{ID: "cus_1"},
			BillingDetails: &stripe.PaymentMethodBillingDetails{
				Name:    "A",
				Phone:   "1",
				Address: &stripe.Address{City: "Berlin", Country: "DE", Line1: "Main 1"},
			},
			Card: &stripe.PaymentMethodCard{Last4: "4242", ExpMonth: 12, ExpYear: 2030},
		},
	}

	got, err := SubscriptionFromStripe(in)
	require.NoError(t, err)

	assert.Equal(t, "sub_1", got.ID)
	assert.Equal(t, "cus_1", got.CustomerID)
	assert.Equal(t, "trialing", got.Status)
	assert.Equal(t, int64(0), got.CancelAt)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "price_1", got.Items[0].PriceID)
	assert.Equal(t, int64(1702592000), got.Items[0].CurrentPeriodEnd)

	require.NotNil(t, got.DefaultPaymentMethod)
	pm := got.DefaultPaymentMethod
	assert.Equal(t, "cus_1", pm.CustomerID)
	assert.Equal(t, &models.Address{City: "Berlin", Country: "DE", Line1: "Main 1"}, pm.BillingDetails.Address)
	assert.True(t, pm.BillingDetails.Complete())

	var card map[string]any
	require.NoError(t, json.Unmarshal(pm.Details, &card))
	assert.Equal(t, "4242", card["last4"])
}

func TestPaymentMethodFromStripe_NotExpanded(t *testing.T) {
	got, err := PaymentMethodFromStripe(&stripe.PaymentMethod{ID: "pm_1"})
	require.NoError(t, err)
	assert.Equal(t, "pm_1", got.ID)
	assert.Nil(t, got.Details)
	assert.False(t, got.BillingDetails.Complete())
}

func TestPaymentMethodFromStripe_EmptyAddressObject(t *testing.T) {
	got, err := PaymentMethodFromStripe(&stripe.PaymentMethod{
		ID:       "pm_1",
		Customer: &stripe.Customer{ID: "cus_1"},
		BillingDetails: &stripe.PaymentMethodBillingDetails{
			Name:    "A",
			Phone:   "1",
			Address: &stripe.Address{},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, &models.Address{}, got.BillingDetails.Address)
	assert.True(t, got.BillingDetails.Complete())
}

func TestBillingDetails_Complete(t *testing.T) {
	addr := &models.Address{Line1: "Main 1"}
	tests := []struct {
		name string
		in   BillingDetails
		want bool
	}{
		{name: "all present", in: BillingDetails{Name: "A", Phone: "1", Address: addr}, want: true},
		{name: "phone missing", in: BillingDetails{Name: "A", Address: addr}, want: false},
		{name: "name missing", in: BillingDetails{Phone: "1", Address: addr}, want: false},
		{name: "address missing", in: BillingDetails{Name: "A", Phone: "1"}, want: false},
		{name: "empty address object counts as present", in: BillingDetails{Name: "A", Phone: "1", Address: &models.Address{}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Complete())
		})
	}
}
