package registration

import (
	"snaplink/models"
	"snaplink/services/wizard"
)

// Sequencer is the registration instance of the generic wizard.
type Sequencer = wizard.Sequencer[models.RegistrationDraft, models.RegistrationPatch]

type step = wizard.Step[models.RegistrationDraft]

// newSequencer returns the steps for role: customers give an account and a
// profile, photographers also describe their studio and portfolio.
func newSequencer(role models.Role) *Sequencer {
	initial := models.RegistrationDraft{Role: role}
	account := step{Name: "account", Validate: fields("Email", "Password")}
	confirm := step{Name: "confirm", Validate: fields("AcceptedTerms")}

	if role == models.RolePhotographer {
		return wizard.New[models.RegistrationDraft, models.RegistrationPatch](initial,
			account,
			step{Name: "profile", Validate: fields("FullName", "PhoneNumber", "Province")},
			step{Name: "studio", Validate: fields("StudioName", "Address")},
			step{Name: "portfolio", Validate: fields("Bio", "Tags", "ExperienceYears")},
			confirm,
		)
	}
	return wizard.New[models.RegistrationDraft, models.RegistrationPatch](initial,
		account,
		step{Name: "profile", Validate: fields("FullName", "PhoneNumber")},
		confirm,
	)
}
