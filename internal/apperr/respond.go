package apperr

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// LoginURL is where an anonymous caller is sent, carrying the path it asked for.
func LoginURL(next string) string {
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	if _, ok := IsValidation(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Respond writes the JSON error body for err and aborts the chain.
func Respond(c *gin.Context, err error) {
	status := Status(err)
	body := gin.H{"ok": false}

	switch status {
	case http.StatusUnauthorized:
		body["error"] = ErrAuthenticationRequired.Error()
		body["login_url"] = LoginURL(c.Request.URL.RequestURI())
	case http.StatusForbidden:
		body["error"] = ErrPermissionDenied.Error()
		body["redirect"] = DashboardPath
	case http.StatusNotFound:
		body["error"] = err.Error()
	case http.StatusConflict:
		body["error"] = err.Error()
	case http.StatusUnprocessableEntity:
		v, _ := IsValidation(err)
		body["error"] = "validation failed"
		body["fields"] = v.Fields
	default:
		log.Printf("[err] id=%s method=%s path=%s err=%v",
			c.GetString("request_id"), c.Request.Method, c.Request.URL.Path, err)
		body["error"] = "internal error"
	}

	c.AbortWithStatusJSON(status, body)
}

// BadRequest is used for bodies that do not even decode.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}
