package component

import (
	"image"
	"image/color"
)

// Payload is the data carried between modules. Each concrete payload
// corresponds to exactly one PortType, so a consumer switches on the
// concrete type instead of probing keys.
type Payload interface {
	Type() PortType
	isPayload()
}

// Message is what a module receives on Input. DataType is the declared type
// of the emitting port, or empty when injected directly by the UI.
type Message struct {
	Payload  Payload
	DataType PortType
}

// TriggerPayload signals an event without data
type TriggerPayload struct{}

// FilePathPayload carries a file path
type FilePathPayload struct{ Path string }

// FolderPathPayload carries a folder path
type FolderPathPayload struct{ Path string }

// FramePayload carries an 8-bit image
type FramePayload struct{ Image image.Image }

// Frame16Payload carries a 16-bit grayscale image
type Frame16Payload struct{ Image *image.Gray16 }

// MaskPayload carries a binary mask, 0 or 255 per pixel
type MaskPayload struct{ Mask *image.Gray }

// FrameMaskPairPayload carries a frame together with its mask
type FrameMaskPairPayload struct {
	Frame image.Image
	Mask  *image.Gray
}

// TextPayload carries plain text
type TextPayload struct{ Text string }

// NumberPayload carries a single value
type NumberPayload struct{ Value float64 }

// CmdDictPayload carries one command
type CmdDictPayload struct{ Cmd map[string]any }

// CmdListPayload carries a list of commands
type CmdListPayload struct{ Cmds []map[string]any }

// StatusDictPayload carries device or module status
type StatusDictPayload struct{ Status map[string]any }

// DataListPayload carries a named X/Y series
type DataListPayload struct {
	X    []float64
	Y    []float64
	Name string
}

// PositionPayload carries a 1D position
type PositionPayload struct{ Value float64 }

// PointListPayload carries a list of points
type PointListPayload struct{ Points []image.Point }

// Track is one tracked object
type Track struct {
	Points     []image.Point
	Dimensions []image.Point
	Color      color.RGBA
}

// TrackingPayload carries tracked objects keyed by id
type TrackingPayload struct{ Tracks map[int]Track }

func (TriggerPayload) Type() PortType       { return Trigger }
func (FilePathPayload) Type() PortType      { return FilePath }
func (FolderPathPayload) Type() PortType    { return FolderPath }
func (FramePayload) Type() PortType         { return Frame }
func (Frame16Payload) Type() PortType       { return Frame16 }
func (MaskPayload) Type() PortType          { return Mask }
func (FrameMaskPairPayload) Type() PortType { return FrameMaskPair }
func (TextPayload) Type() PortType          { return Text }
func (NumberPayload) Type() PortType        { return Number }
func (CmdDictPayload) Type() PortType       { return CmdDict }
func (CmdListPayload) Type() PortType       { return CmdList }
func (StatusDictPayload) Type() PortType    { return StatusDict }
func (DataListPayload) Type() PortType      { return DataList }
func (PositionPayload) Type() PortType      { return Position }
func (PointListPayload) Type() PortType     { return PointList }
func (TrackingPayload) Type() PortType      { return Tracking }

func (TriggerPayload) isPayload()       {}
func (FilePathPayload) isPayload()      {}
func (FolderPathPayload) isPayload()    {}
func (FramePayload) isPayload()         {}
func (Frame16Payload) isPayload()       {}
func (MaskPayload) isPayload()          {}
func (FrameMaskPairPayload) isPayload() {}
func (TextPayload) isPayload()          {}
func (NumberPayload) isPayload()        {}
func (CmdDictPayload) isPayload()       {}
func (CmdListPayload) isPayload()       {}
func (StatusDictPayload) isPayload()    {}
func (DataListPayload) isPayload()      {}
func (PositionPayload) isPayload()      {}
func (PointListPayload) isPayload()     {}
func (TrackingPayload) isPayload()      {}
