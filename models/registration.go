package models

// Role decides which registration steps apply.
type Role string

const (
	RoleCustomer     Role = "customer"
	RolePhotographer Role = "photographer"
)

// Valid reports whether r is a role that can register.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RolePhotographer
}

// RegistrationDraft is the in-progress account accumulated by the registration wizard.
type RegistrationDraft struct {
	Role            Role     `json:"role"`
	Email           string   `json:"email,omitempty" validate:"required,email,max=254"`
	Password        string   `json:"password,omitempty" validate:"required,min=8,max=72"`
	FullName        string   `json:"full_name,omitempty" validate:"required,min=2,max=100"`
	PhoneNumber     string   `json:"phone_number,omitempty" validate:"required,phone"`
	Province        string   `json:"province,omitempty" validate:"required,max=100"`
	StudioName      string   `json:"studio_name,omitempty" validate:"required,max=120"`
	Address         string   `json:"address,omitempty" validate:"required,max=255"`
	Bio             string   `json:"bio,omitempty" validate:"max=1000"`
	Tags            []string `json:"tags,omitempty" validate:"max=10,dive,min=1,max=30"`
	ExperienceYears int      `json:"experience_years,omitempty" validate:"gte=0,lte=80"`
	AcceptedTerms   bool     `json:"accepted_terms" validate:"required"`
}

// Redacted returns a copy safe to send back to the client.
func (d RegistrationDraft) Redacted() RegistrationDraft {
	if d.Password != "" {
		d.Password = "********"
	}
	return d
}

// RegistrationPatch is a partial update of a registration draft.
type RegistrationPatch struct {
	Email           *string   `json:"email,omitempty"`
	Password        *string   `json:"password,omitempty"`
	FullName        *string   `json:"full_name,omitempty"`
	PhoneNumber     *string   `json:"phone_number,omitempty"`
	Province        *string   `json:"province,omitempty"`
	StudioName      *string   `json:"studio_name,omitempty"`
	Address         *string   `json:"address,omitempty"`
	Bio             *string   `json:"bio,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	ExperienceYears *int      `json:"experience_years,omitempty"`
	AcceptedTerms   *bool     `json:"accepted_terms,omitempty"`
}

// Merge returns d with every non-nil field of p applied. The role is fixed at start.
func (d RegistrationDraft) Merge(p RegistrationPatch) RegistrationDraft {
	if p.Email != nil {
		d.Email = *p.Email
	}
	if p.Password != nil {
		d.Password = *p.Password
	}
	if p.FullName != nil {
		d.FullName = *p.FullName
	}
	if p.PhoneNumber != nil {
		d.PhoneNumber = *p.PhoneNumber
	}
	if p.Province != nil {
		d.Province = *p.Province
	}
	if p.StudioName != nil {
		d.StudioName = *p.StudioName
	}
	if p.Address != nil {
		d.Address = *p.Address
	}
	if p.Bio != nil {
		d.Bio = *p.Bio
	}
	if p.Tags != nil {
		d.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.ExperienceYears != nil {
		d.ExperienceYears = *p.ExperienceYears
	}
	if p.AcceptedTerms != nil {
		d.AcceptedTerms = *p.AcceptedTerms
	}
	return d
}

// RegisterRequest is the backend's account-creation payload.
type RegisterRequest struct {
	Role            Role     `json:"role"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	FullName        string   `json:"full_name"`
	PhoneNumber     string   `json:"phone_number"`
	Province        string   `json:"province,omitempty"`
	StudioName      string   `json:"studio_name,omitempty"`
	Address         string   `json:"address,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	ExperienceYears int      `json:"experience_years,omitempty"`
}

// RegisteredUser is the account the backend created.
type RegisteredUser struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}
