package billing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/music-billing/internal/models"
	"github.com/magabrotheeeer/music-billing/internal/paymentprovider"
	"github.com/magabrotheeeer/music-billing/internal/storage"
)

type StoreMock struct{ mock.Mock }

func (m *StoreMock) UpsertProduct(ctx context.Context, p models.Product) error {
	return m.Called(ctx, p).Error(0)
}
func (m *StoreMock) UpsertPrice(ctx context.Context, p models.Price) error {
	return m.Called(ctx, p).Error(0)
}
func (m *StoreMock) GetCustomerByUserID(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
func (m *StoreMock) GetUserIDByCustomerID(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}
func (m *StoreMock) AttachCustomer(ctx context.Context, userID, customerID string) error {
	return m.Called(ctx, userID, customerID).Error(0)
}
func (m *StoreMock) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}
func (m *StoreMock) UpdateUserBilling(ctx context.Context, userID string, profile models.BillingProfile) (int64, error) {
	args := m.Called(ctx, userID, profile)
	return args.Get(0).(int64), args.Error(1)
}
func (m *StoreMock) CreateIntent(ctx context.Context, intent models.Intent) (int64, error) {
	args := m.Called(ctx, intent)
	return args.Get(0).(int64), args.Error(1)
}
func (m *StoreMock) CompleteIntent(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *StoreMock) FailIntent(ctx context.Context, id int64, errMsg string) error {
	return m.Called(ctx, id, errMsg).Error(0)
}

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}
func (m *ProviderMock) DeleteCustomer(ctx context.Context, customerID string) error {
	return m.Called(ctx, customerID).Error(0)
}
func (m *ProviderMock) UpdateCustomerBillingDetails(ctx context.Context, customerID string, details paymentprovider.BillingDetails) error {
	return m.Called(ctx, customerID, details).Error(0)
}
func (m *ProviderMock) RetrieveSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// memStore: хранилище в памяти с той же семантикой записи, что и storage.Storage.
type memStore struct {
	mu            sync.Mutex
	products      map[string]models.Product
	prices        map[string]models.Price
	customers     map[string]string
	subscriptions map[string]models.Subscription
	users         map[string]*models.BillingProfile
	intents       map[int64]*models.Intent
	nextIntent    int64
}

func newMemStore(userIDs ...string) *memStore {
	s := &memStore{
		products:      map[string]models.Product{},
		prices:        map[string]models.Price{},
		customers:     map[string]string{},
		subscriptions: map[string]models.Subscription{},
		users:         map[string]*models.BillingProfile{},
		intents:       map[int64]*models.Intent{},
	}
	for _, id := range userIDs {
		s.users[id] = nil
	}
	return s
}

func (s *memStore) UpsertProduct(_ context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func (s *memStore) UpsertPrice(_ context.Context, p models.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ProductID]; !ok {
		return fmt.Errorf("product %s does not exist", p.ProductID)
	}
	s.prices[p.ID] = p
	return nil
}

func (s *memStore) GetCustomerByUserID(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.customers[userID]
	if !ok || id == "" {
		return "", storage.ErrNotFound
	}
	return id, nil
}

func (s *memStore) GetUserIDByCustomerID(_ context.Context, customerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, id := range s.customers {
		if id == customerID {
			return userID, nil
		}
	}
	return "", storage.ErrNotFound
}

func (s *memStore) AttachCustomer(_ context.Context, userID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.customers[userID]; ok && id != "" {
		return storage.ErrAlreadyExists
	}
	s.customers[userID] = customerID
	return nil
}

func (s *memStore) UpsertSubscription(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = sub
	return nil
}

func (s *memStore) UpdateUserBilling(_ context.Context, userID string, profile models.BillingProfile) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return 0, nil
	}
	s.users[userID] = &profile
	return 1, nil
}

func (s *memStore) CreateIntent(_ context.Context, intent models.Intent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, in := range s.intents {
		if in.Status == models.IntentPending && in.Kind == intent.Kind && in.UserID == intent.UserID &&
			in.CustomerID == intent.CustomerID && in.PaymentMethodID == intent.PaymentMethodID {
			in.Payload = intent.Payload
			return id, nil
		}
	}
	s.nextIntent++
	intent.ID = s.nextIntent
	intent.Status = models.IntentPending
	s.intents[intent.ID] = &intent
	return intent.ID, nil
}

func (s *memStore) CompleteIntent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return storage.ErrNotFound
	}
	in.Status = models.IntentDone
	return nil
}

func (s *memStore) FailIntent(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return storage.ErrNotFound
	}
	in.Attempts++
	in.LastError = errMsg
	return nil
}

// fakeProvider выдаёт уникальные ID клиентов и считает вызовы.
type fakeProvider struct {
	mu        sync.Mutex
	created   []string
	deleted   []string
	updateErr error
}

func (p *fakeProvider) CreateCustomer(_ context.Context, _, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("cus_%d", len(p.created)+1)
	p.created = append(p.created, id)
	return id, nil
}

func (p *fakeProvider) DeleteCustomer(_ context.Context, customerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, customerID)
	return nil
}

func (p *fakeProvider) UpdateCustomerBillingDetails(context.Context, string, paymentprovider.BillingDetails) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateErr
}

func (p *fakeProvider) RetrieveSubscription(context.Context, string) (*paymentprovider.Subscription, error) {
	return nil, fmt.Errorf("not supported")
}
