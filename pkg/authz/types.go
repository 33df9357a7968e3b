package authz

import "strings"

const (
	RoleReader = "reader"
	RoleWriter = "writer"

	rolePrefix       = "role"
	subjectSeparator = ":"
)

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Object  string
	Action  string
}

func NewRequest(subject, object, action string) Request {
	return Request{
		Subject: subject,
		Object:  strings.ToLower(strings.TrimSpace(object)),
		Action:  strings.ToLower(strings.TrimSpace(action)),
	}
}

// SubjectForRole returns the policy subject for a role name, e.g. "role:reader".
func SubjectForRole(role string) string {
	return rolePrefix + subjectSeparator + strings.ToLower(strings.TrimSpace(role))
}
