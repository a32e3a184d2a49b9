package middleware

import (
	"fmt"
	"strings"

	"crowdfund/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span per request. Once the router has
// matched, the span is renamed after the route pattern and tagged with the
// crowdfunding resource and its key (project id, category key, username).
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, "HTTP "+c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.url", c.OriginalURL()),
				attribute.String("http.ip", c.IP()),
				attribute.String("http.user_agent", c.Get("User-Agent")),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Locals("spanID", span.SpanContext().SpanID().String())
		if requestID := c.Locals("requestid"); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprintf("%v", requestID)))
		}
		c.Set("X-Trace-ID", traceID)
		c.SetUserContext(ctx)

		err := c.Next()

		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Response().StatusCode()),
		)
		span.SetAttributes(routeAttributes(c, route)...)

		if userID, ok := c.Locals("userID").(uint); ok {
			span.SetAttributes(attribute.Int64("user.id", int64(userID)))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "server error")
		}
		return err
	}
}

// resourceOf returns the first segment after /api/ in a route pattern.
func resourceOf(route string) string {
	rest, ok := strings.CutPrefix(route, "/api/")
	if !ok {
		return ""
	}
	resource, _, _ := strings.Cut(rest, "/")
	return resource
}

func routeAttributes(c *fiber.Ctx, route string) []attribute.KeyValue {
	resource := resourceOf(route)
	if resource == "" {
		return nil
	}
	attrs := []attribute.KeyValue{attribute.String("crowdfund.resource", resource)}
	switch resource {
	case "projects":
		if id, err := c.ParamsInt("id"); err == nil && id > 0 {
			attrs = append(attrs, attribute.Int("project.id", id))
		}
		if strings.HasSuffix(route, "/publish") {
			attrs = append(attrs, attribute.String("project.action", "publish"))
		}
	case "pledges":
		if c.Method() == fiber.MethodPost {
			attrs = append(attrs, attribute.String("pledge.action", "create"))
		}
	case "categories":
		if key := c.Params("key"); key != "" {
			attrs = append(attrs, attribute.String("category.key", key))
		}
	case "users":
		if name := c.Params("username"); name != "" {
			attrs = append(attrs, attribute.String("user.username", name))
		}
	}
	return attrs
}
