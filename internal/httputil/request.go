package httputil

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
)

// DefaultPrincipalHeader carries the caller identity set by the authenticating proxy.
const DefaultPrincipalHeader = "X-Principal"

// AuditRequest describes the caller of c for audit records. The principal is the subject
// of the verified TLS client certificate when present, otherwise the value of
// principalHeader.
func AuditRequest(c *gin.Context, principalHeader string) auditDomain.RequestContext {
	requestID, err := uuid.Parse(requestid.Get(c))
	if err != nil {
		requestID = uuid.Must(uuid.NewV7())
	}

	return auditDomain.RequestContext{
		RequestID:    requestID,
		Principal:    principal(c, principalHeader),
		RequesterIP:  c.RemoteIP(),
		ForwardedFor: c.GetHeader("X-Forwarded-For"),
		HostName:     c.Request.Host,
		Path:         c.Request.URL.Path,
		Method:       c.Request.Method,
	}
}

func principal(c *gin.Context, header string) string {
	if tls := c.Request.TLS; tls != nil && len(tls.PeerCertificates) > 0 {
		return tls.PeerCertificates[0].Subject.String()
	}
	if header == "" {
		header = DefaultPrincipalHeader
	}
	return c.GetHeader(header)
}
