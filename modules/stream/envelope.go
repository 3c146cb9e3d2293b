package stream

import (
	"fmt"
	"image"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
)

// Envelope is one broadcast message
type Envelope struct {
	Type      string             `json:"type"`
	ID        string             `json:"id"`
	Timestamp int64              `json:"timestamp"`
	DataType  component.PortType `json:"data_type"`
	Payload   gojson.RawMessage  `json:"payload,omitempty"`
}

type imageSummary struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func summarize(img image.Image) *imageSummary {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	return &imageSummary{Width: b.Dx(), Height: b.Dy()}
}

type maskSummary struct {
	imageSummary
	Set int `json:"set"`
}

func summarizeMask(m *image.Gray) *maskSummary {
	if m == nil {
		return nil
	}
	s := &maskSummary{imageSummary: *summarize(m)}
	for _, v := range m.Pix {
		if v != 0 {
			s.Set++
		}
	}
	return s
}

// payloadBody returns the JSON body of p
func payloadBody(p component.Payload) (any, error) {
	switch v := p.(type) {
	case component.TriggerPayload:
		return nil, nil
	case component.TextPayload:
		return map[string]string{"text": v.Text}, nil
	case component.NumberPayload:
		return map[string]float64{"value": v.Value}, nil
	case component.PositionPayload:
		return map[string]float64{"value": v.Value}, nil
	case component.FilePathPayload:
		return map[string]string{"path": v.Path}, nil
	case component.FolderPathPayload:
		return map[string]string{"path": v.Path}, nil
	case component.CmdDictPayload:
		return v.Cmd, nil
	case component.CmdListPayload:
		return v.Cmds, nil
	case component.StatusDictPayload:
		return v.Status, nil
	case component.DataListPayload:
		return map[string]any{"x": v.X, "y": v.Y, "name": v.Name}, nil
	case component.PointListPayload:
		pts := make([][2]int, len(v.Points))
		for i, pt := range v.Points {
			pts[i] = [2]int{pt.X, pt.Y}
		}
		return map[string]any{"points": pts}, nil
	case component.TrackingPayload:
		counts := make(map[string]int, len(v.Tracks))
		for id, tr := range v.Tracks {
			counts[fmt.Sprint(id)] = len(tr.Points)
		}
		return map[string]any{"tracks": counts}, nil
	case component.FramePayload:
		return summarize(v.Image), nil
	case component.Frame16Payload:
		if v.Image == nil {
			return nil, nil
		}
		return summarize(v.Image), nil
	case component.MaskPayload:
		return summarizeMask(v.Mask), nil
	case component.FrameMaskPairPayload:
		return map[string]any{"frame": summarize(v.Frame), "mask": summarizeMask(v.Mask)}, nil
	default:
		return nil, fmt.Errorf("%w: payload %T", errors.ErrInvalidData, p)
	}
}

// Encode builds the JSON envelope for msg
func Encode(msg component.Message, now time.Time) ([]byte, error) {
	if msg.Payload == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Envelope", "Encode", "payload check")
	}
	body, err := payloadBody(msg.Payload)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Envelope", "Encode", "payload conversion")
	}

	env := Envelope{
		Type:      "data",
		ID:        uuid.NewString(),
		Timestamp: now.UnixMilli(),
		DataType:  msg.Payload.Type(),
	}
	if body != nil {
		raw, err := gojson.Marshal(body)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Envelope", "Encode", "payload marshal")
		}
		env.Payload = raw
	}
	data, err := gojson.Marshal(env)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Envelope", "Encode", "envelope marshal")
	}
	return data, nil
}
