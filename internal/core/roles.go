package core

import "strings"

// Role is a canonical user role code.
type Role string

const (
	RoleDirector         Role = "director"
	RoleManager          Role = "manager"
	RoleEmployee         Role = "employee"
	RoleInternalAgent    Role = "internal_agent"
	RoleExternalAgent    Role = "external_agent"
	RoleInternalSupplier Role = "internal_supplier"
	RoleExternalSupplier Role = "external_supplier"
)

// roleInfo describes how a role is accepted on input and rendered on output.
type roleInfo struct {
	Code    Role
	Label   string // accepted localized input label (lower-case)
	Display string // export label
	Slug    string // ASCII filename fragment
}

var roleTable = []roleInfo{
	{RoleDirector, "giám đốc", "Giám Đốc", "Giam_Doc"},
	{RoleManager, "quản lý", "Quản Lý", "Quan_Ly"},
	{RoleEmployee, "nhân viên", "Nhân Viên", "Nhan_Vien"},
	{RoleInternalAgent, "đại lý nội bộ", "Đại Lý Nội Bộ", "Dai_Ly_Noi_Bo"},
	{RoleExternalAgent, "đại lý bên ngoài", "Đại Lý Bên Ngoài", "Dai_Ly_Ben_Ngoai"},
	{RoleInternalSupplier, "nhà cung cấp nội bộ", "Nhà Cung Cấp Nội Bộ", "Nha_Cung_Cap_Noi_Bo"},
	{RoleExternalSupplier, "nhà cung cấp bên ngoài", "Nhà Cung Cấp Bên Ngoài", "Nha_Cung_Cap_Ben_Ngoai"},
}

// Roles returns every canonical role code in table order.
func Roles() []Role {
	out := make([]Role, len(roleTable))
	for i, r := range roleTable {
		out[i] = r.Code
	}
	return out
}

// RoleCodes returns the role codes as strings, for messages and validator tags.
func RoleCodes() []string {
	out := make([]string, len(roleTable))
	for i, r := range roleTable {
		out[i] = string(r.Code)
	}
	return out
}

func lookupRole(s string) (roleInfo, bool) {
	s = strings.TrimSpace(s)
	for _, r := range roleTable {
		if strings.EqualFold(s, string(r.Code)) || strings.EqualFold(s, r.Label) {
			return r, true
		}
	}
	return roleInfo{}, false
}

// IsValidRole reports whether s names a role by code or localized label, ignoring case.
func IsValidRole(s string) bool {
	_, ok := lookupRole(s)
	return ok
}

// MapRole converts a code or label to its canonical code.
// Unknown input is passed through unchanged; callers validate first.
func MapRole(s string) Role {
	if r, ok := lookupRole(s); ok {
		return r.Code
	}
	return Role(s)
}

// ParseRole is the strict form of MapRole: only exact canonical codes are accepted.
func ParseRole(s string) (Role, bool) {
	for _, r := range roleTable {
		if s == string(r.Code) {
			return r.Code, true
		}
	}
	return "", false
}

// DisplayName returns the localized export label, or the raw code when unknown.
func (r Role) DisplayName() string {
	for _, info := range roleTable {
		if info.Code == r {
			return info.Display
		}
	}
	return string(r)
}

// Slug returns an ASCII label suitable for file names.
func (r Role) Slug() string {
	for _, info := range roleTable {
		if info.Code == r {
			return info.Slug
		}
	}
	return string(r)
}
