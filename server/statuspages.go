package server

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/karloscodes/pagelet"
)

// Default ids of the built-in status fragments.
const (
	DefaultNotFoundID    = "not-found"
	DefaultServerErrorID = "server-error"
)

// DefaultStatusFragments returns ready-made not-found and server-error
// fragments for registries that don't bring their own. When isDev is true
// the server-error page includes the failure message.
func DefaultStatusFragments(isDev bool) []*pagelet.Fragment {
	return []*pagelet.Fragment{
		{
			ID: DefaultNotFoundID,
			Render: func(ctx context.Context, inst *pagelet.Instance) (string, error) {
				return statusHTML(fiber.StatusNotFound, StatusCodeName(fiber.StatusNotFound), ""), nil
			},
		},
		{
			ID: DefaultServerErrorID,
			Render: func(ctx context.Context, inst *pagelet.Instance) (string, error) {
				message := ""
				if isDev {
					message, _ = inst.Data[pagelet.ErrorDataKey].(string)
				}
				return statusHTML(fiber.StatusInternalServerError, StatusCodeName(fiber.StatusInternalServerError), message), nil
			},
		},
	}
}

// StatusCodeName returns a human-readable name for common HTTP status codes.
func StatusCodeName(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "Bad Request"
	case fiber.StatusUnauthorized:
		return "Unauthorized"
	case fiber.StatusForbidden:
		return "Forbidden"
	case fiber.StatusNotFound:
		return "Not Found"
	case fiber.StatusMethodNotAllowed:
		return "Method Not Allowed"
	case fiber.StatusTooManyRequests:
		return "Too Many Requests"
	case fiber.StatusInternalServerError:
		return "Internal Server Error"
	case fiber.StatusBadGateway:
		return "Bad Gateway"
	case fiber.StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return "Error"
	}
}

// statusHTML generates a simple, styled HTML status page.
func statusHTML(code int, title, message string) string {
	details := ""
	if message != "" {
		details = fmt.Sprintf(`<p style="color:#666;font-size:14px;margin-top:20px;font-family:monospace;background:#f5f5f5;padding:10px;border-radius:4px;">%s</p>`, message)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%d - %s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #f8f9fa;
            color: #333;
        }
        .container {
            text-align: center;
            padding: 40px;
            max-width: 500px;
        }
        h1 {
            font-size: 72px;
            margin: 0;
            color: #dc3545;
        }
        h2 {
            font-size: 24px;
            margin: 10px 0 20px;
            color: #666;
        }
        a {
            color: #007bff;
            text-decoration: none;
        }
        a:hover {
            text-decoration: underline;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>%d</h1>
        <h2>%s</h2>
        <p><a href="/">Go back home</a></p>
        %s
    </div>
</body>
</html>`, code, title, code, title, details)
}
