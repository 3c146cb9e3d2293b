package workspace

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
)

//go:embed schema.json
var documentSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(documentSchema)

// Document is the persisted form of a workspace
type Document struct {
	Windows     []component.Record `json:"windows"`
	Connections []Connection       `json:"connections"`
}

// Connection is one persisted edge
type Connection struct {
	From   string    `json:"from"`
	Output OutputKey `json:"output"`
	To     Targets   `json:"to"`
}

// OutputKey is the persisted output port name. Older files may store the
// port index as a number; it is kept as its decimal string.
type OutputKey string

// UnmarshalJSON accepts a string, a number or null
func (k *OutputKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = OutputKey(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*k = OutputKey(strconv.Itoa(n))
		return nil
	}
	if strings.TrimSpace(string(data)) == "null" {
		*k = ""
		return nil
	}
	return fmt.Errorf("output must be a port name, got %s", data)
}

// Targets is the persisted target of a connection: one module id, or a
// legacy list of ids that always routes from the first output.
type Targets struct {
	IDs    []string
	Legacy bool
}

// To refers to a single target
func To(id string) Targets {
	return Targets{IDs: []string{id}}
}

// MarshalJSON writes a string, or a list for legacy targets
func (t Targets) MarshalJSON() ([]byte, error) {
	if t.Legacy {
		if t.IDs == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(t.IDs)
	}
	if len(t.IDs) == 0 {
		return []byte(`""`), nil
	}
	return json.Marshal(t.IDs[0])
}

// UnmarshalJSON accepts a string or a list of strings
func (t *Targets) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*t = To(id)
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("to must be a module id or a list of ids: %w", err)
	}
	*t = Targets{IDs: ids, Legacy: true}
	return nil
}

// ValidateDocument checks raw workspace JSON against the document schema
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"Workspace", "ValidateDocument", "schema validation")
	}
	if !result.Valid() {
		var msg strings.Builder
		msg.WriteString("workspace document is invalid:")
		for _, desc := range result.Errors() {
			fmt.Fprintf(&msg, "\n  - %s: %s", desc.Field(), desc.Description())
		}
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidData, msg.String()),
			"Workspace", "ValidateDocument", "schema validation")
	}
	return nil
}

// Decode validates and decodes a workspace document
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := ValidateDocument(data); err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, errors.WrapInvalid(err, "Workspace", "Decode", "JSON decoding")
	}
	return doc, nil
}

// Encode renders doc as indented JSON
func Encode(doc Document) ([]byte, error) {
	if doc.Windows == nil {
		doc.Windows = []component.Record{}
	}
	if doc.Connections == nil {
		doc.Connections = []Connection{}
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, errors.WrapFatal(err, "Workspace", "Encode", "JSON encoding")
	}
	return data, nil
}
