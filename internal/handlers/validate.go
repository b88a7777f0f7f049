// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/mail"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"taxportal/internal/models"
)

// Validation limits for form fields.
const (
	maxNameLen    = 200
	maxEmailLen   = 254
	maxPhoneLen   = 32
	maxCompanyLen = 200
	maxMessageLen = 5_000
	minPhoneDigit = 6
)

// businessAreas are the options of the consultation form.
var businessAreas = []string{
	"Corporate tax",
	"Personal tax",
	"VAT",
	"Payroll",
	"Insurance",
	"Other",
}

// consultationForm holds the submitted consultation request.
type consultationForm struct {
	Name         string
	Email        string
	Phone        string
	Company      string
	BusinessArea string
	Message      string
	Consent      bool
}

// validateConsultation checks a consultation request and returns the
// first error found. Either an e-mail address or a phone number is needed.
func validateConsultation(f consultationForm) string {
	if strings.TrimSpace(f.Name) == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(f.Name) > maxNameLen {
		return "Name is too long (max 200 characters)."
	}
	if f.Email == "" && f.Phone == "" {
		return "Please leave an e-mail address or a phone number."
	}
	if msg := validateEmail(f.Email); msg != "" {
		return msg
	}
	if msg := validatePhone(f.Phone); msg != "" {
		return msg
	}
	if utf8.RuneCountInString(f.Company) > maxCompanyLen {
		return "Company is too long (max 200 characters)."
	}
	if f.BusinessArea != "" && !slices.Contains(businessAreas, f.BusinessArea) {
		return "Please choose a business area from the list."
	}
	if utf8.RuneCountInString(f.Message) > maxMessageLen {
		return "Message is too long (max 5,000 characters)."
	}
	if !f.Consent {
		return "Please agree to be contacted."
	}
	return ""
}

// validateProfileContact checks step 1 of the profile flow.
func validateProfileContact(displayName, phone string) string {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return "Display name is required."
	}
	if utf8.RuneCountInString(displayName) > maxNameLen {
		return "Display name is too long (max 200 characters)."
	}
	return validatePhone(phone)
}

// validateProfileMembership checks step 2 of the profile flow.
func validateProfileMembership(memberType models.MemberType, company string) string {
	if !memberType.Valid() {
		return "Please choose a membership type."
	}
	if utf8.RuneCountInString(company) > maxCompanyLen {
		return "Company is too long (max 200 characters)."
	}
	return ""
}

// validateEmail accepts an empty address.
func validateEmail(email string) string {
	if email == "" {
		return ""
	}
	if len(email) > maxEmailLen {
		return "E-mail address is too long."
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "Please enter a valid e-mail address."
	}
	return ""
}

// validatePhone accepts an empty number. Digits may be grouped with
// spaces, dashes, dots or parentheses and prefixed with +.
func validatePhone(phone string) string {
	if phone == "" {
		return ""
	}
	if len(phone) > maxPhoneLen {
		return "Phone number is too long."
	}
	digits := 0
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "Phone number may only contain digits."
		}
	}
	if digits < minPhoneDigit {
		return "Phone number is too short."
	}
	return ""
}

