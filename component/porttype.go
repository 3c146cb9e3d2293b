package component

import (
	"fmt"
	"slices"
)

// PortType is the semantic kind of data carried across a port. The string
// value is the wire form used in workspace files.
type PortType string

// Port type catalog
const (
	Trigger       PortType = "trigger"
	FilePath      PortType = "file_path"
	FolderPath    PortType = "folder_path"
	Frame         PortType = "frame"
	Frame16       PortType = "frame16"
	Mask          PortType = "mask"
	FrameMaskPair PortType = "frame_mask_pair"
	Text          PortType = "text"
	Number        PortType = "number"
	CmdDict       PortType = "cmd_dict"
	CmdList       PortType = "cmd_list"
	StatusDict    PortType = "status_dict"
	DataList      PortType = "datalist"
	Position      PortType = "position"
	PointList     PortType = "point_list"
	Tracking      PortType = "tracking"
)

type portTypeInfo struct {
	shape       string
	description string
}

// catalog order is the declaration order reported by AllPortTypes
var portCatalog = []PortType{
	Trigger, FilePath, FolderPath, Frame, Frame16, Mask, FrameMaskPair, Text,
	Number, CmdDict, CmdList, StatusDict, DataList, Position, PointList, Tracking,
}

var portInfo = map[PortType]portTypeInfo{
	Trigger:       {"none", "Trigger event, no data"},
	FilePath:      {"string", "Path to a file, e.g. an image or a video"},
	FolderPath:    {"string", "Path to a folder"},
	Frame:         {"8-bit image", "Image frame"},
	Frame16:       {"16-bit grayscale image", "16-bit image frame"},
	Mask:          {"8-bit grayscale image", "Binary mask"},
	FrameMaskPair: {"(frame, mask)", "Frame together with its mask"},
	Text:          {"string", "Plain text"},
	Number:        {"float64", "Single numeric value, e.g. 42 or 3.14"},
	CmdDict:       {"map[string]any", "Command dictionary"},
	CmdList:       {"[]map[string]any", "List of commands"},
	StatusDict:    {"map[string]any", "Status dictionary"},
	DataList:      {"(x []float64, y []float64, name)", "X/Y series with a name"},
	Position:      {"float64", "1D position, e.g. 100 or 100.5"},
	PointList:     {"[]image.Point", "List of points"},
	Tracking:      {"map[id]track", "Tracked objects with points, dimensions and color"},
}

// String returns the wire value
func (t PortType) String() string {
	return string(t)
}

// Valid reports whether t is in the catalog
func (t PortType) Valid() bool {
	_, ok := portInfo[t]
	return ok
}

// DataShape describes the Go shape of the payload carried by t
func (t PortType) DataShape() string {
	return portInfo[t].shape
}

// Description returns a human-readable explanation of t
func (t PortType) Description() string {
	return portInfo[t].description
}

// ParsePortType validates a wire value
func ParsePortType(s string) (PortType, error) {
	t := PortType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown port type %q", s)
	}
	return t, nil
}

// AllPortTypes lists the catalog in declaration order
func AllPortTypes() []PortType {
	return slices.Clone(portCatalog)
}

// Accepts reports whether a target declaring accepted may receive t. An empty
// accepted set admits every type.
func Accepts(accepted []PortType, t PortType) bool {
	return len(accepted) == 0 || slices.Contains(accepted, t)
}
