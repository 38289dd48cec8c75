package services

import (
	"errors"

	"github.com/argus-sec/argus/internal/ipmatch"
	"github.com/argus-sec/argus/internal/logger"
	"github.com/argus-sec/argus/internal/metrics"
	"github.com/argus-sec/argus/internal/models"
)

// Decision outcomes.
const (
	OutcomeGranted = "GRANTED"
	OutcomeDenied  = "DENIED"
)

// Denial reasons carried on a Decision.
const (
	ReasonUnauthenticated  = "UNAUTHENTICATED"
	ReasonForbidden        = "FORBIDDEN"
	ReasonIPNotWhitelisted = "IP_NOT_WHITELISTED"
	ReasonInternal         = "INTERNAL"
)

// AccessRequest carries everything a decision needs. Nothing is read from
// ambient request state; callers extract token, service and source address
// up front and pass them explicitly.
type AccessRequest struct {
	Token         string
	Service       string
	SourceIP      string
	RequiredRoles []string
}

// Decision is the terminal result of evaluating an AccessRequest.
type Decision struct {
	Outcome     string       `json:"outcome"`
	Reason      string       `json:"reason,omitempty"`
	User        *models.User `json:"-"`
	Service     string       `json:"service"`
	SourceIP    string       `json:"source_ip"`
	MatchedSpec string       `json:"matched_spec,omitempty"`
	// DefaultAllowed is set when the grant came from an empty rule set
	// rather than a matching rule.
	DefaultAllowed bool `json:"default_allowed,omitempty"`
}

// AccessService evaluates access requests: credential first, then role, then
// source address against the service's whitelist. Every evaluation ends in
// exactly one audit event, written after the outcome is final.
type AccessService struct {
	auth        *AuthService
	whitelist   *WhitelistService
	audit       *AuditService
	defaultDeny bool
}

func NewAccessService(auth *AuthService, whitelist *WhitelistService, audit *AuditService, defaultDeny bool) *AccessService {
	return &AccessService{
		auth:        auth,
		whitelist:   whitelist,
		audit:       audit,
		defaultDeny: defaultDeny,
	}
}

// Decide runs the full evaluation. The checks short-circuit in a fixed order:
// an unauthenticated caller is never told whether its address would have
// matched.
func (s *AccessService) Decide(req AccessRequest) Decision {
	claims, err := s.auth.VerifyAccess(req.Token)
	if err != nil {
		return s.deny(req, nil, ReasonUnauthenticated, "missing or invalid access token")
	}

	user, err := s.auth.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return s.deny(req, nil, ReasonUnauthenticated, "token subject no longer exists")
		}
		return s.fault(req, err)
	}
	if !user.Enabled {
		return s.deny(req, user, ReasonUnauthenticated, "account disabled")
	}

	if len(req.RequiredRoles) > 0 && !roleAllowed(user.Role, req.RequiredRoles) {
		return s.deny(req, user, ReasonForbidden, "role not permitted for this service")
	}

	rules, err := s.whitelist.RulesForService(req.Service)
	if err != nil {
		return s.fault(req, err)
	}

	if len(rules) == 0 {
		if s.defaultDeny {
			return s.deny(req, user, ReasonIPNotWhitelisted, "no whitelist rules and default policy is deny")
		}
		return s.grant(req, user, "", true)
	}

	for _, rule := range rules {
		if ipmatch.Matches(req.SourceIP, rule.AddressSpec) {
			return s.grant(req, user, rule.AddressSpec, false)
		}
	}

	return s.deny(req, user, ReasonIPNotWhitelisted, "source address matches no whitelist rule")
}

func (s *AccessService) grant(req AccessRequest, user *models.User, matched string, defaulted bool) Decision {
	metrics.IncAccessGranted()

	detail := map[string]interface{}{
		"service": req.Service,
	}
	if defaulted {
		detail["default_allowed"] = true
		detail["note"] = "no whitelist rules configured for service"
	} else {
		detail["matched_spec"] = matched
	}

	s.audit.RecordBestEffort(&models.AuditEvent{
		EventType:  models.EventAccessGranted,
		ActorID:    &user.ID,
		SourceIP:   req.SourceIP,
		EntityID:   &user.ID,
		EntityKind: models.EntityUser,
		Details:    Detail(detail),
	})

	return Decision{
		Outcome:        OutcomeGranted,
		User:           user,
		Service:        req.Service,
		SourceIP:       req.SourceIP,
		MatchedSpec:    matched,
		DefaultAllowed: defaulted,
	}
}

func (s *AccessService) deny(req AccessRequest, user *models.User, reason, note string) Decision {
	metrics.IncAccessDenied()

	// Denials before the address check are credential failures, not
	// whitelist verdicts; only a non-matching source address is ACCESS_DENIED.
	eventType := models.EventAccessDenied
	if reason == ReasonUnauthenticated || reason == ReasonForbidden {
		eventType = models.EventAuthFailure
		metrics.IncAuthFailure()
	}

	event := &models.AuditEvent{
		EventType: eventType,
		SourceIP:  req.SourceIP,
		Details: Detail(map[string]interface{}{
			"service": req.Service,
			"reason":  reason,
			"note":    note,
		}),
	}
	if user != nil {
		event.ActorID = &user.ID
		event.EntityID = &user.ID
		event.EntityKind = models.EntityUser
	}
	s.audit.RecordBestEffort(event)

	return Decision{
		Outcome:  OutcomeDenied,
		Reason:   reason,
		User:     user,
		Service:  req.Service,
		SourceIP: req.SourceIP,
	}
}

func (s *AccessService) fault(req AccessRequest, err error) Decision {
	logger.WithFields(map[string]interface{}{
		"service":   req.Service,
		"source_ip": req.SourceIP,
	}).WithError(err).Error("access evaluation failed")

	metrics.IncAccessDenied()

	// The fault detail stays server-side; the caller only sees the denial.
	s.audit.RecordBestEffort(&models.AuditEvent{
		EventType: models.EventAccessDenied,
		SourceIP:  req.SourceIP,
		Details: Detail(map[string]interface{}{
			"service": req.Service,
			"reason":  ReasonInternal,
			"error":   err.Error(),
		}),
	})

	return Decision{
		Outcome:  OutcomeDenied,
		Reason:   ReasonInternal,
		Service:  req.Service,
		SourceIP: req.SourceIP,
	}
}

func roleAllowed(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
