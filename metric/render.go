package metric

import (
	"bytes"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/t0mer/wa-llm-exporter/errors"
)

// TextFormat is the exposition format served on /metrics
var TextFormat = expfmt.NewFormat(expfmt.TypeTextPlain)

// ContentType is the HTTP content type of TextFormat
func ContentType() string {
	return string(TextFormat)
}

// Render encodes families in the Prometheus text exposition format
func Render(families []*dto.MetricFamily) ([]byte, error) {
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, TextFormat)
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return nil, errors.Wrap(err, "metric", "Render", "encode "+family.GetName())
		}
	}
	return buf.Bytes(), nil
}
