package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrValidationFailed is returned for unusable input.
	ErrValidationFailed = errors.New("validation failed")
)

const listLimit = 200

// Service is the CRUD layer over the firm's records.
type Service struct {
	db *gorm.DB
}

// NewService migrates the CRM tables and returns the service.
func NewService(db *gorm.DB) (*Service, error) {
	if err := db.AutoMigrate(&Client{}, &Case{}, &Contract{}, &Payment{}); err != nil {
		return nil, fmt.Errorf("migrate crm tables: %w", err)
	}
	return &Service{db: db}, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) CreateClient(ctx context.Context, c *Client) error {
	if c.Name == "" {
		return fmt.Errorf("%w: client name required", ErrValidationFailed)
	}
	c.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *Service) GetClient(ctx context.Context, id string) (*Client, error) {
	var c Client
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "get client")
	}
	return &c, nil
}

func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	var out []Client
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(listLimit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateClient(ctx context.Context, c *Client) error {
	if c.ID == "" || c.Name == "" {
		return fmt.Errorf("%w: client id and name required", ErrValidationFailed)
	}
	res := s.db.WithContext(ctx).Model(&Client{}).Where("id = ?", c.ID).
		Select("name", "email", "phone", "address", "notes").Updates(c)
	if res.Error != nil {
		return fmt.Errorf("update client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteClient(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Client{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) CreateCase(ctx context.Context, c *Case) error {
	if c.ClientID == "" || c.Title == "" {
		return fmt.Errorf("%w: case client and title required", ErrValidationFailed)
	}
	c.ID = uuid.NewString()
	if c.Status == "" {
		c.Status = "open"
	}
	if c.OpenedAt.IsZero() {
		c.OpenedAt = nowFunc()
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (s *Service) GetCase(ctx context.Context, id string) (*Case, error) {
	var c Case
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "get case")
	}
	return &c, nil
}

func (s *Service) ListCases(ctx context.Context) ([]Case, error) {
	var out []Case
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(listLimit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateCase(ctx context.Context, c *Case) error {
	if c.ID == "" || c.Title == "" {
		return fmt.Errorf("%w: case id and title required", ErrValidationFailed)
	}
	res := s.db.WithContext(ctx).Model(&Case{}).Where("id = ?", c.ID).
		Select("title", "description", "status", "closed_at").Updates(c)
	if res.Error != nil {
		return fmt.Errorf("update case: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteCase(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Case{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete case: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) CreateContract(ctx context.Context, c *Contract) error {
	if c.ClientID == "" || c.Title == "" {
		return fmt.Errorf("%w: contract client and title required", ErrValidationFailed)
	}
	c.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (s *Service) GetContract(ctx context.Context, id string) (*Contract, error) {
	var c Contract
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "get contract")
	}
	return &c, nil
}

func (s *Service) ListContracts(ctx context.Context) ([]Contract, error) {
	var out []Contract
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(listLimit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateContract(ctx context.Context, c *Contract) error {
	if c.ID == "" || c.Title == "" {
		return fmt.Errorf("%w: contract id and title required", ErrValidationFailed)
	}
	res := s.db.WithContext(ctx).Model(&Contract{}).Where("id = ?", c.ID).
		Select("title", "terms", "signed_at", "expires_at", "case_id").Updates(c)
	if res.Error != nil {
		return fmt.Errorf("update contract: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteContract(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Contract{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete contract: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) CreatePayment(ctx context.Context, p *Payment) error {
	if p.ClientID == "" || p.AmountCents <= 0 {
		return fmt.Errorf("%w: payment client and positive amount required", ErrValidationFailed)
	}
	p.ID = uuid.NewString()
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = nowFunc()
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *Service) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "get payment")
	}
	return &p, nil
}

func (s *Service) ListPayments(ctx context.Context) ([]Payment, error) {
	var out []Payment
	err := s.db.WithContext(ctx).Order("paid_at DESC").Limit(listLimit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

func (s *Service) UpdatePayment(ctx context.Context, p *Payment) error {
	if p.ID == "" || p.AmountCents <= 0 {
		return fmt.Errorf("%w: payment id and positive amount required", ErrValidationFailed)
	}
	res := s.db.WithContext(ctx).Model(&Payment{}).Where("id = ?", p.ID).
		Select("amount_cents", "currency", "method", "reference", "paid_at", "contract_id").Updates(p)
	if res.Error != nil {
		return fmt.Errorf("update payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeletePayment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Payment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
