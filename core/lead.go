package core

import (
	"strings"
	"time"
)

// Lead is a contact form submission
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Comment   string    `json:"comment"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadInput is the contact form payload
type LeadInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Company string `json:"company" validate:"omitempty,max=100"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
	Comment string `json:"comment" validate:"required,min=10,max=1000"`
}

// Normalize trims every field
func (in LeadInput) Normalize() LeadInput {
	return LeadInput{
		Name:    strings.TrimSpace(in.Name),
		Company: strings.TrimSpace(in.Company),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Comment: strings.TrimSpace(in.Comment),
	}
}

// Validate checks the trimmed input against the contact form rules
func (in LeadInput) Validate() error {
	return validateStruct(in.Normalize(), ErrInvalidLead)
}

// LeadStats summarises the leads for the admin dashboard
type LeadStats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
	Read   int `json:"read"`
}
