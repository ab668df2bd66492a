package validation

// ValidateOpenSession validates a new support session.
func ValidateOpenSession(subject, body string) []FieldError {
	var errs fieldErrors
	errs.text("subject", subject, true, 200)
	errs.text("body", body, true, 4000)
	return errs
}

// ValidateSupportMessage validates a message posted to a support session.
func ValidateSupportMessage(body string) []FieldError {
	var errs fieldErrors
	errs.text("body", body, true, 4000)
	return errs
}
