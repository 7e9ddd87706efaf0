package tracing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "redemption-engine"

// Config 链路追踪配置
type Config struct {
	Enabled     bool
	Endpoint    string // Jaeger collector 地址，例如 http://localhost:14268/api/traces
	ServiceName string
	Environment string
	Version     string
}

var (
	mu     sync.RWMutex
	tracer trace.Tracer = noop.NewTracerProvider().Tracer("noop")
	tp     *tracesdk.TracerProvider
)

// Init 初始化全局 tracer，未启用时保留 noop 实现
func Init(cfg Config) error {
	if !cfg.Enabled {
		return nil
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	if err != nil {
		return fmt.Errorf("create jaeger exporter failed: %w", err)
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(cfg.Version),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("create trace resource failed: %w", err)
	}

	provider := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	mu.Lock()
	tp = provider
	tracer = provider.Tracer(serviceName)
	mu.Unlock()
	return nil
}

// Start 开启一个 span
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	mu.RLock()
	t := tracer
	mu.RUnlock()
	return t.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End 结束 span，err 非空时记录错误
func End(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceID 返回上下文中的 trace id，无有效 span 时为空
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Shutdown 刷新并关闭 tracer provider
func Shutdown(ctx context.Context) error {
	mu.RLock()
	provider := tp
	mu.RUnlock()
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}
