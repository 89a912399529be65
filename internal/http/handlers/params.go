package handlers

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
)

const headerIdempotencyKey = "Idempotency-Key"

func threadIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return uuid.Nil, domainerrors.Validation("invalid thread id")
	}
	return id, nil
}

func queryLimit(c *gin.Context) int {
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// pageLimit is queryLimit bounded to one message page.
func pageLimit(c *gin.Context) int {
	n := queryLimit(c)
	if n <= 0 {
		return defaultPageLimit
	}
	return min(n, maxPageLimit)
}

// queryBeforeSeq accepts before_seq and its short alias before.
func queryBeforeSeq(c *gin.Context) (*int64, error) {
	return querySeq(c, "before_seq", "before")
}

// queryAfterSeq accepts after_seq and its short alias after.
func queryAfterSeq(c *gin.Context) (*int64, error) {
	return querySeq(c, "after_seq", "after")
}

func querySeq(c *gin.Context, name, alias string) (*int64, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		v = strings.TrimSpace(c.Query(alias))
	}
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, domainerrors.Validation(name + " must be an integer")
	}
	return &n, nil
}

// bindOptionalJSON tolerates an empty body for endpoints whose fields are all optional.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return domainerrors.Validation("invalid request body")
	}
	return nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return domainerrors.Validation("invalid request body")
	}
	return nil
}
