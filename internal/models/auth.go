// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// MemberType classifies a member account. Categories can be restricted to
// a single member type.
type MemberType string

const (
	MemberGeneral   MemberType = "GENERAL"
	MemberInsurance MemberType = "INSURANCE"
	MemberOther     MemberType = "OTHER"
)

// MemberTypes lists the selectable member types in display order.
var MemberTypes = []MemberType{MemberGeneral, MemberInsurance, MemberOther}

// Valid reports whether m is one of the known member types.
func (m MemberType) Valid() bool {
	for _, t := range MemberTypes {
		if m == t {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for the member type.
func (m MemberType) Label() string {
	switch m {
	case MemberGeneral:
		return "General corporate"
	case MemberInsurance:
		return "Insurance agency"
	case MemberOther:
		return "Other"
	default:
		return ""
	}
}

// AuthState is the viewer's authentication snapshot. MemberType is only
// meaningful when LoggedIn is true.
type AuthState struct {
	LoggedIn   bool       `json:"logged_in"`
	MemberType MemberType `json:"member_type,omitempty"`
}

// Anonymous returns the auth state of a visitor who is not logged in.
func Anonymous() AuthState {
	return AuthState{}
}

// ListingMemberType is the value sent as the memberType listing filter.
// Anonymous viewers send the literal "null" so the CMS can apply guest
// filtering; omitting the parameter would mean something else.
func (a AuthState) ListingMemberType() string {
	if !a.LoggedIn || a.MemberType == "" {
		return "null"
	}
	return string(a.MemberType)
}
