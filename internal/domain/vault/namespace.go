package vault

import (
	"fmt"
	"strings"
)

const namespaceRoot = "healthcare"

// ResolvePrefix maps (module, role, principal, optional subject/category) to
// the canonical storage path prefix. Pure and deterministic: no I/O, no
// clock. A principal always resolves through its own role segment, never the
// subject's, so a subject id can never steer a path into foreign territory.
func ResolvePrefix(module string, role Role, principalID, subjectID, category string) (string, error) {
	if err := validSegment("module", module); err != nil {
		return "", err
	}
	if err := validSegment("principal id", principalID); err != nil {
		return "", err
	}

	var roleSegment string
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleDoctor, RoleNurse:
		roleSegment = fmt.Sprintf("staff/%ss/%s", role, principalID)
	case RolePatient:
		roleSegment = fmt.Sprintf("patients/%s", principalID)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	parts := []string{namespaceRoot, module, roleSegment}
	if subjectID != "" {
		if err := validSegment("subject id", subjectID); err != nil {
			return "", err
		}
		parts = append(parts, "patients/"+subjectID)
		if category != "" {
			if err := validSegment("category", category); err != nil {
				return "", err
			}
			parts = append(parts, category)
		}
	}
	return strings.Join(parts, "/"), nil
}

// validSegment rejects empty values and path metacharacters so ids supplied
// by callers cannot inject traversal into storage keys.
func validSegment(name, v string) error {
	if v == "" {
		return fmt.Errorf("namespace: %s is empty", name)
	}
	if strings.ContainsAny(v, "/\\") || strings.Contains(v, "..") {
		return fmt.Errorf("namespace: %s contains path characters: %q", name, v)
	}
	return nil
}
