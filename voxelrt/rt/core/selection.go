package core

// Selection is an axis-aligned rectangle on the current layer, spanned by the
// drag-start and drag-end cells in slice coordinates.
type Selection struct {
	Active bool
	Start  [2]int
	End    [2]int
}

func (s *Selection) Begin(u, v int) {
	s.Active = true
	s.Start = [2]int{u, v}
	s.End = s.Start
}

func (s *Selection) Drag(u, v int) {
	if !s.Active {
		s.Begin(u, v)
		return
	}
	s.End = [2]int{u, v}
}

func (s *Selection) Clear() {
	*s = Selection{}
}

// Bounds returns the inclusive min and max corners regardless of drag direction.
func (s *Selection) Bounds() (min, max [2]int, ok bool) {
	if !s.Active {
		return min, max, false
	}
	for i := 0; i < 2; i++ {
		min[i], max[i] = s.Start[i], s.End[i]
		if min[i] > max[i] {
			min[i], max[i] = max[i], min[i]
		}
	}
	return min, max, true
}

func (s *Selection) Contains(u, v int) bool {
	min, max, ok := s.Bounds()
	return ok && u >= min[0] && u <= max[0] && v >= min[1] && v <= max[1]
}
