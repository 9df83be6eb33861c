package vault

import "time"

// Decision is the result of one authorization evaluation. Rule is the number
// of the matched row of the decision table and is recorded with every audit
// entry, allow or deny.
type Decision struct {
	Allowed bool
	Rule    int
	Reason  string
}

// Target is what the operation acts on. Folder is nil for workspace-scoped
// operations; Workspace carries the suspension status when known.
type Target struct {
	Module    string
	Folder    *Folder
	Workspace *Workspace
}

// Authorize evaluates the decision table in order, first match wins. It is a
// pure function of its inputs: all required state (the target and the
// principal's active grants) is passed in, so it performs no I/O and can be
// tested against the full role x operation x ownership matrix.
//
//  1. superadmin: always allowed (global bypass, audited at high risk).
//  2. module-scoped admin: read/write/admin; delete only with an explicit
//     module delete grant.
//  3. clinical staff: responsible or assigned principal of the folder, owner
//     of the workspace, or holder of a delegated grant covering the op.
//  4. patient: own subject folder or own workspace, read and write only.
//  5. deny.
func Authorize(p Principal, op Operation, t Target, grants []AccessGrant, now time.Time) Decision {
	// Rule 1: superadmin bypass.
	if p.Role == RoleSuperAdmin {
		return Decision{Allowed: true, Rule: 1, Reason: "superadmin bypass"}
	}

	// Rule 2: administrator scoped to the module.
	if p.Role == RoleAdmin && p.Module != "" && p.Module == t.Module {
		if op == OpDelete {
			if hasModuleDeleteGrant(p, t.Module, grants, now) {
				return allowUnlessSuspended(t, op, 2, "module admin with delete grant")
			}
			return Decision{Rule: 2, Reason: "module admin without delete grant"}
		}
		return allowUnlessSuspended(t, op, 2, "module admin")
	}

	// Rule 3: clinical staff with a relationship to the target.
	if p.Role.Staff() {
		if t.Folder != nil {
			if t.Folder.ResponsibleID == p.ID {
				return allowUnlessSuspended(t, op, 3, "responsible principal")
			}
			if t.Folder.AssignedID == p.ID {
				return allowUnlessSuspended(t, op, 3, "assigned principal")
			}
			if hasFolderGrant(p, t.Folder.ID.String(), op, grants, now) {
				return allowUnlessSuspended(t, op, 3, "delegated grant")
			}
		}
		if t.Folder == nil && t.Workspace != nil && t.Workspace.PrincipalID == p.ID {
			return allowUnlessSuspended(t, op, 3, "workspace owner")
		}
	}

	// Rule 4: self-service patient, read and limited write only.
	if p.Role == RolePatient && (op == OpRead || op == OpWrite) {
		if t.Folder != nil && t.Folder.SubjectID == p.ID {
			return allowUnlessSuspended(t, op, 4, "subject self-service")
		}
		if t.Folder == nil && t.Workspace != nil && t.Workspace.PrincipalID == p.ID {
			return allowUnlessSuspended(t, op, 4, "own workspace")
		}
	}

	// Rule 5: default deny.
	return Decision{Rule: 5, Reason: "no matching rule"}
}

// allowUnlessSuspended blocks state-changing operations against a suspended
// workspace. Reads stay available so care is never interrupted by a billing
// or compliance suspension.
func allowUnlessSuspended(t Target, op Operation, rule int, reason string) Decision {
	if op != OpRead && t.Workspace != nil && t.Workspace.Status == WorkspaceSuspended {
		return Decision{Rule: rule, Reason: "workspace suspended"}
	}
	return Decision{Allowed: true, Rule: rule, Reason: reason}
}

func hasModuleDeleteGrant(p Principal, module string, grants []AccessGrant, now time.Time) bool {
	for i := range grants {
		g := &grants[i]
		if g.GranteeID == p.ID && g.FolderID == nil && g.Module == module && g.Active(now) && g.Covers(OpDelete) {
			return true
		}
	}
	return false
}

func hasFolderGrant(p Principal, folderID string, op Operation, grants []AccessGrant, now time.Time) bool {
	for i := range grants {
		g := &grants[i]
		if g.GranteeID == p.ID && g.FolderID != nil && g.FolderID.String() == folderID && g.Active(now) && g.Covers(op) {
			return true
		}
	}
	return false
}
