package http

import "github.com/labstack/echo/v4"

// Handler mounts a group of API routes on the server's Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
