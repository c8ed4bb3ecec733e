package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"
	"github.com/zerofarias/varo-pos-sub000/internal/middleware"
	"github.com/zerofarias/varo-pos-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError writes a business error with its mapped HTTP status, or a
// generic 500 for anything unexpected.
func respondError(c *gin.Context, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status(), apiErr)
		return
	}
	log.Error().
		Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.FullPath()).
		Msg("unexpected error")
	c.JSON(http.StatusInternalServerError, apierror.Internal())
}

// operatorFrom builds the acting operator identity from the JWT claims.
func operatorFrom(c *gin.Context) service.Operator {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Operator{}
	}
	userID, _ := uuid.Parse(claims.UserID)
	branchID, _ := uuid.Parse(claims.BranchID)
	return service.Operator{UserID: userID, BranchID: branchID, Role: claims.Role}
}

// queryInt reads an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// pathUUID parses a :id-style path parameter, writing the 400 itself on
// failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidation, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
