package livecalls

import "time"

func (s *Service) SetNow(now func() time.Time) { s.now = now }
func (s *Service) SetRandom(r Random)          { s.rng = r }
