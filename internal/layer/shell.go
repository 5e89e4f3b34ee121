// Package layer places GTK windows on a wlr layer shell surface.
package layer

/*
#cgo pkg-config: gtk-layer-shell-0
#include <gtk-layer-shell.h>
*/
import "C"
import "unsafe"

type Layer int

const (
	LayerBackground Layer = 0
	LayerBottom     Layer = 1
	LayerTop        Layer = 2
	LayerOverlay    Layer = 3
)

type Edge int

const (
	EdgeLeft   Edge = 0
	EdgeRight  Edge = 1
	EdgeTop    Edge = 2
	EdgeBottom Edge = 3
)

// KeyboardMode controls whether the surface can take keyboard focus.
// OnDemand gives normal focus-in/focus-out behavior.
type KeyboardMode int

const (
	KeyboardModeNone      KeyboardMode = 0
	KeyboardModeExclusive KeyboardMode = 1
	KeyboardModeOnDemand  KeyboardMode = 2
)

// Placement describes where a surface sits and how it takes input.
type Placement struct {
	Layer    Layer
	Keyboard KeyboardMode
	Anchors  []Edge
	Margins  map[Edge]int
	// ExclusiveZone 0 lets the surface float over other windows.
	ExclusiveZone int
}

// Supported reports whether the compositor speaks the layer shell protocol.
func Supported() bool {
	return C.gtk_layer_is_supported() != 0
}

// Apply turns window, a *C.GtkWindow that is not yet realized, into a layer
// surface with placement p.
func Apply(window unsafe.Pointer, p Placement) {
	w := (*C.GtkWindow)(window)

	C.gtk_layer_init_for_window(w)
	C.gtk_layer_set_layer(w, C.GtkLayerShellLayer(p.Layer))
	C.gtk_layer_set_keyboard_mode(w, C.GtkLayerShellKeyboardMode(p.Keyboard))
	for _, edge := range p.Anchors {
		C.gtk_layer_set_anchor(w, C.GtkLayerShellEdge(edge), 1)
	}
	for edge, margin := range p.Margins {
		C.gtk_layer_set_margin(w, C.GtkLayerShellEdge(edge), C.int(margin))
	}
	C.gtk_layer_set_exclusive_zone(w, C.int(p.ExclusiveZone))
}
