package app

import "go.opentelemetry.io/otel"

const tracerName = "github.com/grcmmap/api/internal/app"

var tracer = otel.Tracer(tracerName)
