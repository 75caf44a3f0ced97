package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/httperr"
	"go.uber.org/zap"
)

// respondError writes err with the status its kind maps to.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	httperr.Respond(c, logger, err)
}

// bindJSON decodes the body into req. A malformed body is a validation
// error naming the JSON field at fault; the decoder's own message is only
// logged. The handler must return when ok is false.
func bindJSON(c *gin.Context, logger *zap.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Debug("request body rejected", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, logger, fmt.Errorf("%w: %s", apperrors.ErrValidation, bindMessage(req, err)))
		return false
	}
	return true
}

func bindMessage(req any, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "missing or invalid field: " + jsonName(req, verrs[0].StructField())
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return "missing or invalid field: " + typeErr.Field
	}
	return "malformed request body"
}

// jsonName maps a Go field of req to its json tag.
func jsonName(req any, field string) string {
	t := reflect.TypeOf(req)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(field); ok {
			if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
				return name
			}
		}
	}
	return strings.ToLower(field)
}

// pathID parses the uuid in the named route parameter.
func pathID(c *gin.Context, logger *zap.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, logger, fmt.Errorf("%w: invalid %s", apperrors.ErrValidation, name))
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c *gin.Context, name string) (int64, error) {
	s := c.Query(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid '%s' parameter", apperrors.ErrValidation, name)
	}
	return n, nil
}
