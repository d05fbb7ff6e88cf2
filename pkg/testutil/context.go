package testutil

import (
	"net/http"
	"time"

	"corpsite/pkg/requestcontext"
)

// WithClientMetadata sets the client IP and user agent the metadata middleware
// would normally extract.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
