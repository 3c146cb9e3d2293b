package workspace

import (
	"os"
	"path/filepath"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/metric"
)

// Export builds the document of modules. Connections are listed per source
// module, in output declaration order then connection order.
func Export(modules []component.Module) Document {
	doc := Document{
		Windows:     make([]component.Record, 0, len(modules)),
		Connections: []Connection{},
	}
	for _, m := range modules {
		doc.Windows = append(doc.Windows, m.Serialize())
	}
	for _, m := range modules {
		conns := m.Connections()
		for _, port := range m.OutputPorts() {
			for _, target := range conns[port.Name] {
				doc.Connections = append(doc.Connections, Connection{
					From:   m.ID(),
					Output: OutputKey(port.Name),
					To:     To(target.ID()),
				})
			}
		}
	}
	return doc
}

// ExportFile writes the document of every live module in reg to path
func ExportFile(reg *component.Registry, path string, metrics *metric.MetricsRegistry) error {
	core := metrics.CoreMetrics()
	if err := writeFile(path, Export(reg.Modules())); err != nil {
		core.RecordWorkspaceOp("export", "error")
		return err
	}
	core.RecordWorkspaceOp("export", "success")
	return nil
}

func writeFile(path string, doc Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapTransient(err, "Workspace", "ExportFile", "create directory")
		}
	}
	// write then rename so a crash never leaves a truncated workspace
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WrapTransient(err, "Workspace", "ExportFile", "write file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.WrapTransient(err, "Workspace", "ExportFile", "rename file")
	}
	return nil
}
