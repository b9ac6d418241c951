package service

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("construction-pos/internal/service")
