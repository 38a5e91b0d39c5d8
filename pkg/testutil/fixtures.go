package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ProfileFixture represents test profile data
type ProfileFixture struct {
	ID             string
	Email          string
	PasswordHash   string
	FullName       string
	Role           string
	OrganizationID *string
	CreatedAt      time.Time
}

// OrgFixture represents test organization data
type OrgFixture struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ProductFixture represents test product data
type ProductFixture struct {
	ID                string
	OrganizationID    string
	Name              string
	SKU               string
	Quantity          int
	MinPriceCents     int64
	CurrentPriceCents int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ClientFixture represents test client data
type ClientFixture struct {
	ID             string
	OrganizationID string
	FullName       string
	Email          string
	Phone          string
	CreatedAt      time.Time
}

// SaleItemFixture represents one test sale line
type SaleItemFixture struct {
	ID             string
	SaleID         string
	ProductID      string
	UnitPriceCents int64
	Quantity       int
}

// SaleFixture represents test sale data
type SaleFixture struct {
	ID               string
	OrganizationID   string
	ClientID         *string
	SellerID         string
	TotalAmountCents int64
	Items            []SaleItemFixture
	CreatedAt        time.Time
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Org creates an organization fixture with defaults
func (f *FixtureFactory) Org(opts ...func(*OrgFixture)) OrgFixture {
	seq := f.nextSeq()

	org := OrgFixture{
		ID:        uuid.New().String(),
		Name:      fmt.Sprintf("Test Org %d", seq),
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&org)
	}

	return org
}

// WithOrgName sets the organization name
func WithOrgName(name string) func(*OrgFixture) {
	return func(o *OrgFixture) {
		o.Name = name
	}
}

// Profile creates a profile fixture with defaults
func (f *FixtureFactory) Profile(opts ...func(*ProfileFixture)) ProfileFixture {
	seq := f.nextSeq()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	profile := ProfileFixture{
		ID:           uuid.New().String(),
		Email:        fmt.Sprintf("user%d@test.nexo.app", seq),
		PasswordHash: string(hash),
		FullName:     fmt.Sprintf("Test User %d", seq),
		Role:         "seller",
		CreatedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(&profile)
	}

	return profile
}

// WithEmail sets the profile email
func WithEmail(email string) func(*ProfileFixture) {
	return func(p *ProfileFixture) {
		p.Email = email
	}
}

// WithFullName sets the profile full name
func WithFullName(name string) func(*ProfileFixture) {
	return func(p *ProfileFixture) {
		p.FullName = name
	}
}

// WithRole sets the profile role
func WithRole(role string) func(*ProfileFixture) {
	return func(p *ProfileFixture) {
		p.Role = role
	}
}

// WithPassword sets the profile password (hashed)
func WithPassword(password string) func(*ProfileFixture) {
	return func(p *ProfileFixture) {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		p.PasswordHash = string(hash)
	}
}

// WithOrganization pins the profile to an organization
func WithOrganization(orgID string) func(*ProfileFixture) {
	return func(p *ProfileFixture) {
		p.OrganizationID = &orgID
	}
}

// Admin creates an admin profile fixture (no pinned organization)
func (f *FixtureFactory) Admin(opts ...func(*ProfileFixture)) ProfileFixture {
	opts = append([]func(*ProfileFixture){WithRole("admin")}, opts...)
	return f.Profile(opts...)
}

// Product creates a product fixture with defaults
func (f *FixtureFactory) Product(orgID string, opts ...func(*ProductFixture)) ProductFixture {
	seq := f.nextSeq()

	product := ProductFixture{
		ID:                uuid.New().String(),
		OrganizationID:    orgID,
		Name:              fmt.Sprintf("Test Product %d", seq),
		SKU:               fmt.Sprintf("SKU-%04d", seq),
		Quantity:          100,
		MinPriceCents:     500,
		CurrentPriceCents: 999,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	for _, opt := range opts {
		opt(&product)
	}

	return product
}

// WithProductName sets the product name
func WithProductName(name string) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.Name = name
	}
}

// WithSKU sets the product SKU
func WithSKU(sku string) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.SKU = sku
	}
}

// WithQuantity sets the product stock quantity
func WithQuantity(qty int) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.Quantity = qty
	}
}

// WithPrices sets the minimum and current prices in cents
func WithPrices(minCents, currentCents int64) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.MinPriceCents = minCents
		p.CurrentPriceCents = currentCents
	}
}

// Client creates a client fixture with defaults
func (f *FixtureFactory) Client(orgID string, opts ...func(*ClientFixture)) ClientFixture {
	seq := f.nextSeq()

	client := ClientFixture{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		FullName:       fmt.Sprintf("Test Client %d", seq),
		Email:          fmt.Sprintf("client%d@test.nexo.app", seq),
		Phone:          fmt.Sprintf("+34 600 000 %03d", seq),
		CreatedAt:      time.Now(),
	}

	for _, opt := range opts {
		opt(&client)
	}

	return client
}

// WithClientName sets the client full name
func WithClientName(name string) func(*ClientFixture) {
	return func(c *ClientFixture) {
		c.FullName = name
	}
}

// Sale creates a sale fixture with one line item
func (f *FixtureFactory) Sale(orgID, sellerID string, opts ...func(*SaleFixture)) SaleFixture {
	saleID := uuid.New().String()

	sale := SaleFixture{
		ID:               saleID,
		OrganizationID:   orgID,
		SellerID:         sellerID,
		TotalAmountCents: 999,
		Items: []SaleItemFixture{
			{
				ID:             uuid.New().String(),
				SaleID:         saleID,
				ProductID:      uuid.New().String(),
				UnitPriceCents: 999,
				Quantity:       1,
			},
		},
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&sale)
	}

	return sale
}

// WithClient attaches a client to the sale
func WithClient(clientID string) func(*SaleFixture) {
	return func(s *SaleFixture) {
		s.ClientID = &clientID
	}
}

// WithItems replaces the sale's line items and recomputes the total
func WithItems(items ...SaleItemFixture) func(*SaleFixture) {
	return func(s *SaleFixture) {
		for i := range items {
			items[i].SaleID = s.ID
			if items[i].ID == "" {
				items[i].ID = uuid.New().String()
			}
		}
		s.Items = items

		var total int64
		for _, item := range items {
			total += item.UnitPriceCents * int64(item.Quantity)
		}
		s.TotalAmountCents = total
	}
}

// DefaultTestProfiles returns a set of standard test profiles covering
// every role, pinned to the given organization where applicable.
func DefaultTestProfiles(factory *FixtureFactory, orgID string) []ProfileFixture {
	return []ProfileFixture{
		factory.Admin(WithEmail("admin@nexo.app"), WithFullName("Ada Admin")),
		factory.Profile(WithEmail("supervisor@nexo.app"), WithFullName("Sam Supervisor"), WithRole("supervisor"), WithOrganization(orgID)),
		factory.Profile(WithEmail("seller@nexo.app"), WithFullName("Vera Vendedora"), WithRole("seller"), WithOrganization(orgID)),
	}
}
