package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// bodyCacheWriter buffers the response body so its hash can be computed before anything is sent.
// bodyCacheWriter 缓冲响应正文以便计算哈希。
type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCacheWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bodyCacheWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// ETagCache answers GET requests with a body hash ETag and returns 304 when If-None-Match matches.
// Responses are marked private because the routes using it sit behind authentication.
func ETagCache(maxAge time.Duration) gin.HandlerFunc {
	cacheControl := "private, max-age=" + strconv.Itoa(int(maxAge.Seconds())) + ", must-revalidate"
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		bcw := &bodyCacheWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = bcw
		c.Next()

		body := bcw.body.Bytes()
		if c.Writer.Status() == http.StatusOK && len(body) > 0 {
			etag := fmt.Sprintf(`"%x"`, sha256.Sum256(body))
			c.Header("ETag", etag)
			c.Header("Cache-Control", cacheControl)
			if c.GetHeader("If-None-Match") == etag {
				bcw.ResponseWriter.WriteHeader(http.StatusNotModified)
				bcw.ResponseWriter.WriteHeaderNow()
				return
			}
		}
		_, _ = bcw.ResponseWriter.Write(body)
	}
}

//Personal.AI order the ending
