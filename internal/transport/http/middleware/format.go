package middleware

import (
	"github.com/gin-gonic/gin"
)

// Format is the negotiated response format of a request. It is the single
// discriminator that picks the identity strategy and the shape of every
// response, including denials.
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

const formatKey = "format"

// ForceJSON marks every request in the group as an API request.
func ForceJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(formatKey, FormatJSON)
		c.Next()
	}
}

// Negotiate picks HTML unless the Accept header prefers JSON.
func Negotiate() gin.HandlerFunc {
	return func(c *gin.Context) {
		f := FormatHTML
		if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
			f = FormatJSON
		}
		c.Set(formatKey, f)
		c.Next()
	}
}

// FormatOf returns the request's format; HTML when nothing negotiated one.
func FormatOf(c *gin.Context) Format {
	if f, ok := c.Get(formatKey); ok {
		return f.(Format)
	}
	return FormatHTML
}

// WantsJSON reports whether the request is an API request.
func WantsJSON(c *gin.Context) bool {
	return FormatOf(c) == FormatJSON
}
