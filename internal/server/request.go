package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id <= 0 {
		return 0, newValidationError(name, "invalid_id", "invalid "+name)
	}
	return id, nil
}

func parseOptionalID(field, value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, newValidationError(field, "invalid_id", "invalid "+field)
	}
	return id, nil
}

type pageQuery struct {
	Limit  string `form:"limit"`
	Offset string `form:"offset"`
}

func (q pageQuery) parse() (int, int, error) {
	limit := defaultPageSize
	if raw := strings.TrimSpace(q.Limit); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return 0, 0, newValidationError("limit", "invalid_limit", "invalid limit")
		}
		limit = min(value, maxPageSize)
	}
	offset := 0
	if raw := strings.TrimSpace(q.Offset); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return 0, 0, newValidationError("offset", "invalid_offset", "invalid offset")
		}
		offset = value
	}
	return limit, offset, nil
}
