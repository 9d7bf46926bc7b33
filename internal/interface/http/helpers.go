package httpapi

import (
	"net/http"
	"strings"

	authDomain "curema-crm/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

func (s *Server) clientMeta(c *gin.Context) authDomain.ClientMeta {
	ua := c.GetHeader("User-Agent")
	return authDomain.ClientMeta{
		IPAddress:  clientIP(c.Request),
		UserAgent:  ua,
		DeviceInfo: authDomain.DeriveDeviceInfo(ua),
	}
}

func clientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		host, _, _ := strings.Cut(r.RemoteAddr, ":")
		ip = host
	}
	return strings.TrimSpace(strings.Split(ip, ",")[0])
}

func parseBearer(h string) string {
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
