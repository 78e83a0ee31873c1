package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pakreq", Name: "logins_total", Help: "Password login attempts by surface (web/api) and result."},
		[]string{"surface", "result"},
	)
	OauthLinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pakreq", Name: "oauth_links_total", Help: "OAuth linking flow outcomes by provider and result."},
		[]string{"provider", "result"},
	)
	TokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pakreq", Name: "api_tokens_issued_total", Help: "Bearer tokens issued to API clients."},
	)
	TokensRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pakreq", Name: "api_tokens_rejected_total", Help: "Bearer tokens rejected during validation."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pakreq", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pakreq", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(OauthLinks)
	reg.MustRegister(TokensIssued)
	reg.MustRegister(TokensRejected)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
