package models

import (
	"time"
)

type Tier int

const (
	TierBasic             Tier = 1
	TierVerifiedHelper    Tier = 2
	TierTrustedMentor     Tier = 3
	TierCommunityGuardian Tier = 4
)

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierVerifiedHelper:
		return "verified_helper"
	case TierTrustedMentor:
		return "trusted_mentor"
	case TierCommunityGuardian:
		return "community_guardian"
	default:
		return "unknown"
	}
}

// StatusColor is the badge colour shown next to a member's name.
func (t Tier) StatusColor() string {
	switch t {
	case TierBasic:
		return "green"
	case TierVerifiedHelper:
		return "blue"
	case TierTrustedMentor:
		return "gold"
	case TierCommunityGuardian:
		return "purple"
	default:
		return "gray"
	}
}

type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationVerified  VerificationStatus = "verified"
	VerificationRejected  VerificationStatus = "rejected"
	VerificationSuspended VerificationStatus = "suspended"
)

type User struct {
	ID                 string             `json:"id" dynamodbav:"id"`
	PhoneNumber        string             `json:"phone" dynamodbav:"phone_number"`
	DisplayName        string             `json:"displayName" dynamodbav:"display_name"`
	Tier               Tier               `json:"tier" dynamodbav:"tier"`
	VouchCount         int                `json:"vouchCount" dynamodbav:"vouch_count"`
	VerificationStatus VerificationStatus `json:"verificationStatus" dynamodbav:"verification_status"`
	IsActive           bool               `json:"isActive" dynamodbav:"is_active"`
	CreatedAt          time.Time          `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt          time.Time          `json:"updatedAt" dynamodbav:"updated_at"`
}

// NewUser returns a user with the defaults given to first-time sign-ins.
func NewUser(id, phoneNumber string) *User {
	suffix := phoneNumber
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return &User{
		ID:                 id,
		PhoneNumber:        phoneNumber,
		DisplayName:        "User " + suffix,
		Tier:               TierBasic,
		VerificationStatus: VerificationPending,
		IsActive:           true,
	}
}

func (u *User) CanVouch() bool {
	return u.Tier >= TierTrustedMentor
}

func (u *User) CanWorkWithYouth() bool {
	return u.Tier >= TierTrustedMentor
}

func (u *User) GetPK() string {
	return "USER!" + u.PhoneNumber
}

func (u *User) GetSK() string {
	return "METADATA"
}

// GetIDPK is the key of the item that maps a user id back to its phone number.
func (u *User) GetIDPK() string {
	return "USERID!" + u.ID
}
