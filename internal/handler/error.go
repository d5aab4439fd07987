package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Message string `json:"message"`
}

// ErrorHandler renders every error as JSON. Internal details are logged,
// never returned.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "something went terribly wrong"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
		if he.Internal != nil {
			c.Logger().Errorf("handler internal error %s [%d]: %+v", c.Request().URL.Path, status, he.Internal)
		}
	} else {
		c.Logger().Errorf("handler error %s: %+v", c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Message: message})
	}
	if err != nil {
		c.Logger().Errorf("err returning json: %+v", err)
	}
}

func newError(err error, status int, message string) error {
	e := echo.NewHTTPError(status, message)
	if err != nil {
		e = e.WithInternal(err)
	}
	return e
}
