package jobs

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer(
	"github.com/j4b6ski/oioioi/cmd/server/internal/jobs",
)
