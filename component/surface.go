package component

// Surface is the rendering collaborator that owns windows and the elements
// placed in them. Composition moves elements between windows through it.
type Surface interface {
	CreateWindow(window, label string, visible bool) error
	DeleteWindow(window string)
	// AddElement places a new element in a window.
	AddElement(window, element string) error
	// Children lists the elements of a window in placement order.
	Children(window string) []string
	// Move reparents an element into window.
	Move(element, window string) error
	Show(window string)
	Hide(window string)
	Exists(element string) bool
}

type nopSurface struct{}

func (nopSurface) CreateWindow(string, string, bool) error { return nil }
func (nopSurface) DeleteWindow(string)                     {}
func (nopSurface) AddElement(string, string) error         { return nil }
func (nopSurface) Children(string) []string                { return nil }
func (nopSurface) Move(string, string) error               { return nil }
func (nopSurface) Show(string)                             {}
func (nopSurface) Hide(string)                             {}
func (nopSurface) Exists(string) bool                      { return false }
