package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"taller/internal/apperror"
	"taller/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is a struct; present it as a float so numeric tags (gte, gt) apply
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body (gin binding tags) and then runs the
// validate tags on money fields. On failure it writes a 400 and returns false.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, fe.Field()+" failed "+fe.Tag())
			}
			err = errors.New(strings.Join(parts, "; "))
		}
		badRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// writeError maps an error kind to its HTTP status. Storage failures are
// already logged by the service, so the client only gets a generic message.
func writeError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := http.StatusInternalServerError
	message := "Internal server error"
	switch kind {
	case apperror.KindValidation:
		status, message = http.StatusBadRequest, err.Error()
	case apperror.KindNotFound:
		status, message = http.StatusNotFound, err.Error()
	case apperror.KindConflict:
		status, message = http.StatusConflict, err.Error()
	}
	c.JSON(status, response.ErrorWithKind(status, string(kind), message))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, response.ErrorWithKind(http.StatusBadRequest, string(apperror.KindValidation), message))
}

// parseID reads a positive numeric path parameter, writing a 400 when it is not one.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func page(c *gin.Context, items interface{}, total int64, pageNum, limit int) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: items,
		Total: total,
		Page:  pageNum,
		Limit: limit,
	}))
}
