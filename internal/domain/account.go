package domain

import "time"

// Role partitions accounts. Identifiers are unique per role, not globally.
type Role string

const (
	RoleUser       Role = "user"
	RoleSeller     Role = "seller"
	RoleConsultant Role = "consultant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleConsultant:
		return true
	}
	return false
}

// Account is a registered user, seller or consultant.
type Account struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone"`
	GSTNumber    string    `json:"gst_number,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Consultant *ConsultantProfile `json:"consultant,omitempty"`
}

// ConsultantProfile holds the public fields only consultants have.
// StartingCharges is in minor currency units.
type ConsultantProfile struct {
	Expertise       string `json:"expertise"`
	ExperienceYears int    `json:"experience_years"`
	StartingCharges int64  `json:"starting_charges"`
	ProfileImage    string `json:"profile_image,omitempty"`
}

// Channel is the medium an OTP is sent over.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Verification is a pending or completed OTP check for one identifier.
type Verification struct {
	ID         string
	Role       Role
	Channel    Channel
	Identifier string
	Code       string
	ExpiresAt  time.Time
	Verified   bool
	// Attempts counts wrong codes submitted since the code was issued.
	Attempts  int
	CreatedAt time.Time
}

func (v *Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// TokenPair is returned by login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
