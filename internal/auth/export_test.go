package auth

// SetPasswordCompare replaces the hash comparison used by Login.
func (s *Service) SetPasswordCompare(fn func(hash, password []byte) error) {
	s.compare = fn
}
