package voxcanvas

// Key is a platform-independent key code. The presenter maps window-system
// keys onto these before forwarding them to the Session.
type Key int

const (
	KeyUnknown Key = iota
	Key1
	Key2
	Key3
	Key4
	KeyX
	KeyY
	KeyZ
	KeyR
	KeyS
	KeyTab
	KeyEscape
	KeyUp
	KeyDown
	KeyPageUp
	KeyPageDown
	KeyShift
	KeyControl
)

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

var keyNames = map[Key]string{
	Key1:        "1",
	Key2:        "2",
	Key3:        "3",
	Key4:        "4",
	KeyX:        "x",
	KeyY:        "y",
	KeyZ:        "z",
	KeyR:        "r",
	KeyS:        "s",
	KeyTab:      "tab",
	KeyEscape:   "escape",
	KeyUp:       "up",
	KeyDown:     "down",
	KeyPageUp:   "page-up",
	KeyPageDown: "page-down",
	KeyShift:    "shift",
	KeyControl:  "control",
}
