package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/urchin-core/internal/brain"
)

// Measurement names.
const (
	MeasurementSensation = "sensation"
	MeasurementUrge      = "urge"
)

// PointWriter accepts points for writing. *Client satisfies it.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Recorder is a brain observer that writes every dispatched sensation and
// every performed urge as a point.
type Recorder struct {
	writer     PointWriter
	instrument string
}

// NewRecorder creates a Recorder tagging points with the instrument id.
func NewRecorder(writer PointWriter, instrument string) *Recorder {
	return &Recorder{writer: writer, instrument: instrument}
}

// Sensed records a sensation, timestamped when it was received.
func (r *Recorder) Sensed(s brain.Sensation) {
	r.writer.WritePoint(write.NewPoint(
		MeasurementSensation,
		map[string]string{
			"instrument": r.instrument,
			"topic":      s.Topic,
		},
		map[string]any{
			"message": s.Message,
			"latency": time.Since(s.ReceivedAt).Seconds(),
		},
		s.ReceivedAt,
	))
}

// Selected records the urge chosen for s.
func (r *Recorder) Selected(s brain.Sensation, u brain.Urge) {
	r.writer.WritePoint(write.NewPoint(
		MeasurementUrge,
		map[string]string{
			"instrument": r.instrument,
			"kind":       u.Kind(),
			"priority":   u.Priority().String(),
			"topic":      s.Topic,
		},
		map[string]any{
			"cause": u.Cause(),
		},
		time.Now(),
	))
}
