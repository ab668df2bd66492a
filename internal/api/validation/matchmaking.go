package validation

import (
	"github.com/google/uuid"

	"github.com/bandhub/bandhub/internal/matchmaking"
)

var experienceLevels = []string{
	matchmaking.LevelBeginner, matchmaking.LevelIntermediate,
	matchmaking.LevelAdvanced, matchmaking.LevelProfessional,
}

// ProfileRequest mirrors the fields needed for create profile validation.
type ProfileRequest struct {
	DisplayName     string
	Instruments     []string
	Genres          []string
	Location        string
	ExperienceLevel string
	Bio             string
	LookingFor      string
}

// ValidateCreateProfileRequest validates the fields of a create profile request.
func ValidateCreateProfileRequest(req ProfileRequest) []FieldError {
	var errs fieldErrors

	errs.text("displayName", req.DisplayName, true, 100)
	errs.list("instruments", req.Instruments, true, 10, 40)
	errs.list("genres", req.Genres, false, 10, 40)
	errs.text("location", req.Location, false, 100)
	if req.ExperienceLevel != "" {
		errs.oneOf("experienceLevel", req.ExperienceLevel, experienceLevels)
	}
	errs.text("bio", req.Bio, false, 2000)
	errs.text("lookingFor", req.LookingFor, false, 500)

	return errs
}

// UpdateProfileRequest mirrors the fields accepted on profile update. Nil fields are not validated.
type UpdateProfileRequest struct {
	DisplayName     *string
	Instruments     []string
	Genres          []string
	Location        *string
	ExperienceLevel *string
	Bio             *string
	LookingFor      *string
}

// ValidateUpdateProfileRequest validates only supplied fields on an update request.
func ValidateUpdateProfileRequest(req UpdateProfileRequest) []FieldError {
	var errs fieldErrors

	errs.optionalText("displayName", req.DisplayName, true, 100)
	if req.Instruments != nil {
		errs.list("instruments", req.Instruments, true, 10, 40)
	}
	if req.Genres != nil {
		errs.list("genres", req.Genres, false, 10, 40)
	}
	errs.optionalText("location", req.Location, false, 100)
	if req.ExperienceLevel != nil {
		errs.oneOf("experienceLevel", *req.ExperienceLevel, experienceLevels)
	}
	errs.optionalText("bio", req.Bio, false, 2000)
	errs.optionalText("lookingFor", req.LookingFor, false, 500)

	return errs
}

// ValidateInvitationRequest validates a band invitation.
func ValidateInvitationRequest(profileID, instrument, message string) []FieldError {
	var errs fieldErrors

	if profileID == "" {
		errs.add("profileId", "profileId is required")
	} else if _, err := uuid.Parse(profileID); err != nil {
		errs.add("profileId", "profileId must be a valid UUID")
	}
	errs.text("instrument", instrument, false, 40)
	errs.text("message", message, false, 1000)

	return errs
}

// ValidateChatMessage validates a direct message.
func ValidateChatMessage(recipientID, body string) []FieldError {
	var errs fieldErrors

	if recipientID == "" {
		errs.add("recipientId", "recipientId is required")
	} else if _, err := uuid.Parse(recipientID); err != nil {
		errs.add("recipientId", "recipientId must be a valid UUID")
	}
	errs.text("body", body, true, 2000)

	return errs
}
