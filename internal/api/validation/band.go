package validation

import "regexp"

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// BandRequest mirrors the EPK fields accepted on create.
type BandRequest struct {
	Name         string
	Slug         string
	Genre        string
	Location     string
	Bio          string
	ImageURL     string
	WebsiteURL   string
	SpotifyURL   string
	InstagramURL string
	ContactEmail string
	PressQuote   string
}

// ValidateCreateBandRequest validates the fields of a create band request.
// Slug is the derived or supplied slug.
func ValidateCreateBandRequest(req BandRequest) []FieldError {
	var errs fieldErrors

	errs.text("name", req.Name, true, 100)
	switch {
	case req.Slug == "":
		errs.add("slug", "slug is required; choose a name with letters or digits")
	case len(req.Slug) > 80 || !slugRegex.MatchString(req.Slug):
		errs.add("slug", "slug must be lowercase alphanumerics separated by single hyphens, at most 80 characters")
	}
	errs.text("genre", req.Genre, false, 60)
	errs.text("location", req.Location, false, 100)
	errs.text("bio", req.Bio, false, 5000)
	errs.text("pressQuote", req.PressQuote, false, 500)
	errs.link("imageUrl", req.ImageURL)
	errs.link("websiteUrl", req.WebsiteURL)
	errs.link("spotifyUrl", req.SpotifyURL)
	errs.link("instagramUrl", req.InstagramURL)
	errs.email("contactEmail", req.ContactEmail, false)

	return errs
}

// UpdateBandRequest mirrors the EPK fields accepted on update. Nil fields are not validated.
type UpdateBandRequest struct {
	Name         *string
	Genre        *string
	Location     *string
	Bio          *string
	ImageURL     *string
	WebsiteURL   *string
	SpotifyURL   *string
	InstagramURL *string
	ContactEmail *string
	PressQuote   *string
}

// ValidateUpdateBandRequest validates only non-nil fields on an update request.
func ValidateUpdateBandRequest(req UpdateBandRequest) []FieldError {
	var errs fieldErrors

	errs.optionalText("name", req.Name, true, 100)
	errs.optionalText("genre", req.Genre, false, 60)
	errs.optionalText("location", req.Location, false, 100)
	errs.optionalText("bio", req.Bio, false, 5000)
	errs.optionalText("pressQuote", req.PressQuote, false, 500)
	for _, f := range []struct {
		field string
		value *string
	}{
		{"imageUrl", req.ImageURL},
		{"websiteUrl", req.WebsiteURL},
		{"spotifyUrl", req.SpotifyURL},
		{"instagramUrl", req.InstagramURL},
	} {
		if f.value != nil {
			errs.link(f.field, *f.value)
		}
	}
	if req.ContactEmail != nil {
		errs.email("contactEmail", *req.ContactEmail, false)
	}

	return errs
}

// ValidateMemberRequest validates a band member entry.
func ValidateMemberRequest(name, instrument string) []FieldError {
	var errs fieldErrors
	errs.text("name", name, true, 100)
	errs.text("instrument", instrument, false, 60)
	return errs
}
