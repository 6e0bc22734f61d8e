package validation

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/tieubaoca/ragchat-be/types"
)

const (
	PartParams = "params"
	PartQuery  = "query"
	PartBody   = "body"
)

const validationError = "ValidationError"

// Target names the request parts to bind. Nil parts are skipped.
type Target struct {
	URI   any
	Query any
	Body  any
}

// Bind binds and validates every present part. All parts are checked even
// when an earlier one fails, so the client sees every issue in one response.
// On failure Bind writes the 400 itself and returns false.
func Bind(c *gin.Context, target Target) bool {
	var issues []types.ValidationIssue
	if target.URI != nil {
		if err := c.ShouldBindUri(target.URI); err != nil {
			issues = append(issues, toIssues(PartParams, err)...)
		}
	}
	if target.Query != nil {
		if err := c.ShouldBindQuery(target.Query); err != nil {
			issues = append(issues, toIssues(PartQuery, err)...)
		}
	}
	if target.Body != nil {
		if err := c.ShouldBindJSON(target.Body); err != nil {
			issues = append(issues, toIssues(PartBody, err)...)
		}
	}
	if len(issues) == 0 {
		return true
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{
		Error:   validationError,
		Details: issues,
	})
	return false
}

// ParseCursor parses an optional RFC3339 cursor. On a malformed cursor it
// writes the 400 itself and returns false.
func ParseCursor(c *gin.Context, cursor string) (time.Time, bool) {
	if cursor == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{
			Error: validationError,
			Details: []types.ValidationIssue{{
				Part:    PartQuery,
				Path:    "cursor",
				Code:    "datetime",
				Message: "cursor must be an RFC3339 timestamp",
			}},
		})
		return time.Time{}, false
	}
	return t, true
}

func toIssues(part string, err error) []types.ValidationIssue {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]types.ValidationIssue, 0, len(verrs))
		for _, fe := range verrs {
			issues = append(issues, types.ValidationIssue{
				Part:    part,
				Path:    fieldPath(fe),
				Code:    fe.Tag(),
				Message: fe.Error(),
			})
		}
		return issues
	}
	return []types.ValidationIssue{{
		Part:    part,
		Code:    "parse",
		Message: err.Error(),
	}}
}

// fieldPath turns a namespace like "ChatRequest.Messages[0].Content" into
// "messages[0].content".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	segments := strings.Split(ns, ".")
	for i, segment := range segments {
		segments[i] = lowerFirst(segment)
	}
	return strings.Join(segments, ".")
}

func lowerFirst(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
