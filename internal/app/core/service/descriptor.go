package service

// Layer describes the architectural slice a service belongs to: telemetry
// ingestion, detection/estimation engines, action-source adapters, the
// persistence layer, or the HTTP surface.
type Layer string

const (
	LayerIngestion Layer = "ingestion"
	LayerAdapter   Layer = "adapter"
	LayerEngine    Layer = "engine"
	LayerData      Layer = "data"
	LayerHTTP      Layer = "http"
)

// Descriptor advertises a service's placement and capabilities. It is optional
// and does not change runtime behavior, but allows orchestration layers and
// documentation to reason about modules consistently.
type Descriptor struct {
	Name         string
	Domain       string
	Layer        Layer
	Capabilities []string
}

// WithCapabilities returns a copy of the descriptor with additional
// capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}
