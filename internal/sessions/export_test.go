package sessions

import "time"

// SetNow overrides the service clock.
func (s *Service) SetNow(now func() time.Time) { s.now = now }
