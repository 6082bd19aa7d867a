package mockapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

// envelope mirrors the wire contract the SDK normalises on the client side.
type envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *errorBody             `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  []appErrors.FieldError `json:"fields,omitempty"`
}

// respond sends a success envelope with optional pagination metadata.
func respond(c *gin.Context, status int, data interface{}, pagination *models.Pagination) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, envelope{Data: data, Pagination: pagination})
}

func created(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, data, nil)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// fail converts any error into the envelope's error half.
func fail(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(status, envelope{Error: &errorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
		Fields:  appErr.Fields,
	}})
}
