package listings

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// BusinessListing is owned by the listings collaborator; this service only
// reads it for ownership checks, badges and matching, and flips it on publish.
type BusinessListing struct {
	ID                 string `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID            uint   `gorm:"not null;index" json:"owner_id"`
	Title              string `json:"title"`
	Industry           string `gorm:"type:varchar(120);index" json:"industry"`
	EBITDARange        string `gorm:"column:ebitda_range;type:varchar(64)" json:"ebitda_range"`
	AnnualRevenueRange string `gorm:"type:varchar(64)" json:"annual_revenue_range"`
	Status             string `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	IsActive           bool   `gorm:"not null;default:false;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *BusinessListing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// InvestorProfile is visible to matching only once Status is published.
type InvestorProfile struct {
	ID                   string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID               uint     `gorm:"not null;uniqueIndex" json:"user_id"`
	DisplayName          string   `json:"display_name"`
	PrimaryIndustry      string   `gorm:"type:varchar(120)" json:"primary_industry"`
	AdditionalIndustries []string `gorm:"type:text;serializer:json" json:"additional_industries"`
	TargetEBITDA         string   `gorm:"column:target_ebitda;type:varchar(64)" json:"target_ebitda"`
	TargetCashFlow       string   `gorm:"type:varchar(64)" json:"target_cash_flow"`
	Status               string   `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *InvestorProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p InvestorProfile) IsPublished() bool {
	return p.Status == StatusPublished
}
