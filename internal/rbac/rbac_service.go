package rbac

import (
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
)

const (
	RoleEmployee = "EMPLOYEE"
	RoleHR       = "HR"
	RoleAdmin    = "ADMIN"
)

// rolePolicy is one (role, resource, action) grant.
type rolePolicy struct {
	role     string
	resource string
	action   string
}

// Static policy table. Roles come in on the JWT; there is no role-admin
// surface in this service, so grants live in code rather than a table.
var defaultPolicies = []rolePolicy{
	{RoleEmployee, "attendance", "create"},
	{RoleEmployee, "attendance", "read"},
	{RoleEmployee, "leave", "create"},
	{RoleEmployee, "leave", "read"},
	{RoleEmployee, "notification", "read"},
	{RoleEmployee, "notification", "update"},

	{RoleHR, "attendance", "read_all"},
	{RoleHR, "attendance", "override"},
	{RoleHR, "leave", "approve"},
	{RoleHR, "leave", "read_all"},
}

// HR and ADMIN inherit everything an employee can do.
var defaultGroupings = [][2]string{
	{RoleHR, RoleEmployee},
	{RoleAdmin, RoleHR},
}

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(req EnforceRequest) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
}

func NewService(enforcer *casbin.Enforcer) (Service, error) {
	s := &service{enforcer: enforcer}
	if err := s.loadPolicies(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *service) loadPolicies() error {
	s.enforcer.ClearPolicy()

	for _, g := range defaultGroupings {
		if _, err := s.enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return err
		}
	}

	for _, p := range defaultPolicies {
		if _, err := s.enforcer.AddPolicy(p.role, p.resource, p.action); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) Enforce(req EnforceRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		return false, nil
	}

	return s.enforcer.Enforce(role, req.Resource, req.Action)
}
