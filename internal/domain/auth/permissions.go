package auth

import "context"

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

const (
	PermDeductionsRead  = "deductions.read"
	PermPayrollRead     = "payroll.read"
	PermPayrollWrite    = "payroll.write"
	PermPayrollRun      = "payroll.run"
	PermPayrollFinalize = "payroll.finalize"
	PermPayslipsRead    = "payslips.read"
	PermPayslipsReadAll = "payslips.read_all"
	PermAuditRead       = "audit.read"
	PermReportsRead     = "reports.read"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermDeductionsRead,
		PermPayslipsRead,
	},
	RoleAdmin: {
		PermDeductionsRead,
		PermPayrollRead,
		PermPayrollWrite,
		PermPayrollRun,
		PermPayrollFinalize,
		PermPayslipsRead,
		PermPayslipsReadAll,
		PermAuditRead,
		PermReportsRead,
	},
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

func HasPermission(role, permission string) bool {
	for _, granted := range RolePermissions[role] {
		if granted == permission {
			return true
		}
	}
	return false
}

// StaticPermissions resolves permissions from RolePermissions. Roles are
// issued by the identity provider, so there is nothing to look up remotely.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return HasPermission(role, permission), nil
}
