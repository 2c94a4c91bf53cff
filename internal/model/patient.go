package model

import (
	"encoding/json"
	"strings"
)

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

type Patient struct {
	Base
	FirstName             string  `db:"first_name" json:"first_name"`
	LastName              string  `db:"last_name" json:"last_name"`
	Email                 *string `db:"email" json:"email"`
	Phone                 *string `db:"phone" json:"phone"`
	DateOfBirth           *Date   `db:"date_of_birth" json:"date_of_birth"`
	Gender                *string `db:"gender" json:"gender"`
	Address               *string `db:"address" json:"address"`
	EmergencyContactName  *string `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone *string `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	MedicalHistory        *string `db:"medical_history" json:"medical_history"`
	Allergies             *string `db:"allergies" json:"allergies"`
	Medications           *string `db:"medications" json:"medications"`
	InsuranceProvider     *string `db:"insurance_provider" json:"insurance_provider"`
	InsurancePolicyNumber *string `db:"insurance_policy_number" json:"insurance_policy_number"`
}

// FullName is "first last".
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Matches reports whether term is a case-insensitive substring of the
// patient's first name, last name or email, or a substring of the phone.
func (p *Patient) Matches(term string) bool {
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.FirstName), lower) ||
		strings.Contains(strings.ToLower(p.LastName), lower) {
		return true
	}
	if p.Email != nil && strings.Contains(strings.ToLower(*p.Email), lower) {
		return true
	}
	return p.Phone != nil && strings.Contains(*p.Phone, term)
}

// PatientRequest is the registration form. It is used for both create and
// full update; empty optional fields are stored as NULL.
type PatientRequest struct {
	FirstName             string `json:"first_name" binding:"required,max=100"`
	LastName              string `json:"last_name" binding:"required,max=100"`
	Email                 string `json:"email" binding:"omitempty,email,max=255"`
	Phone                 string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth           string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender                string `json:"gender" binding:"omitempty,oneof=male female other prefer_not_to_say"`
	Address               string `json:"address"`
	EmergencyContactName  string `json:"emergency_contact_name" binding:"omitempty,max=100"`
	EmergencyContactPhone string `json:"emergency_contact_phone" binding:"omitempty,max=20"`
	MedicalHistory        string `json:"medical_history"`
	Allergies             string `json:"allergies"`
	Medications           string `json:"medications"`
	InsuranceProvider     string `json:"insurance_provider" binding:"omitempty,max=100"`
	InsurancePolicyNumber string `json:"insurance_policy_number" binding:"omitempty,max=100"`
}

// UnmarshalJSON decodes and normalizes the form so binding validation sees
// the trimmed values.
func (r *PatientRequest) UnmarshalJSON(data []byte) error {
	type plain PatientRequest
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = PatientRequest(decoded)
	r.Normalize()
	return nil
}

// Normalize trims surrounding whitespace from every field.
func (r *PatientRequest) Normalize() {
	for _, f := range []*string{
		&r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.DateOfBirth, &r.Gender,
		&r.Address, &r.EmergencyContactName, &r.EmergencyContactPhone,
		&r.MedicalHistory, &r.Allergies, &r.Medications,
		&r.InsuranceProvider, &r.InsurancePolicyNumber,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// ApplyTo copies the form onto p, leaving identity and timestamps alone.
func (r *PatientRequest) ApplyTo(p *Patient) {
	p.FirstName = r.FirstName
	p.LastName = r.LastName
	p.Email = optional(r.Email)
	p.Phone = optional(r.Phone)
	p.DateOfBirth = nil
	if r.DateOfBirth != "" {
		d := Date(r.DateOfBirth)
		p.DateOfBirth = &d
	}
	p.Gender = optional(r.Gender)
	p.Address = optional(r.Address)
	p.EmergencyContactName = optional(r.EmergencyContactName)
	p.EmergencyContactPhone = optional(r.EmergencyContactPhone)
	p.MedicalHistory = optional(r.MedicalHistory)
	p.Allergies = optional(r.Allergies)
	p.Medications = optional(r.Medications)
	p.InsuranceProvider = optional(r.InsuranceProvider)
	p.InsurancePolicyNumber = optional(r.InsurancePolicyNumber)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
