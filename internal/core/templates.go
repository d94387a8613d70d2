package core

import (
	"fmt"
	"strings"
)

// TemplateColumns are the header labels of the downloadable import template.
var TemplateColumns = []string{
	"Họ và Tên",
	"Email",
	"Mật khẩu",
	"Số Điện Thoại",
	"Vai Trò",
	"Địa Chỉ",
	"Trạng Thái",
	"Phòng Ban ID",
	"Manager ID",
	"Ghi Chú",
}

var templateSample = []string{
	"Nguyễn Văn A",
	"nguyenvana@example.com",
	"password123",
	"0123456789",
	string(RoleManager),
	"123 Đường ABC, Quận 1",
	"hoạt động",
	"DEPT001",
	"MGR001",
	"Ghi chú mẫu",
}

// Template returns the BOM-prefixed import template: the header line and
// one example row, with no trailing newline.
func Template() string {
	return BOM + strings.Join(TemplateColumns, ",") + "\n" + JoinLine(templateSample)
}

// TemplateFileName is the attachment name of a template downloaded at ts
// (formatted YYYYMMDD_HHMMSS).
func TemplateFileName(ts string) string {
	return "user_import_template_" + ts + ".csv"
}

// ColumnInfo documents one template column.
type ColumnInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Example     string   `json:"example"`
	ValidValues []string `json:"validValues,omitempty"`
}

// ImportInstructions is the static help payload shown next to the upload form.
type ImportInstructions struct {
	RequiredColumns []ColumnInfo `json:"requiredColumns"`
	OptionalColumns []ColumnInfo `json:"optionalColumns"`
	ImportRules     []string     `json:"importRules"`
	Tips            []string     `json:"tips"`
}

// Instructions describes the template columns and import rules.
// maxUploadBytes is quoted in the size rule.
func Instructions(maxUploadBytes int64) ImportInstructions {
	roles := make([]string, len(roleTable))
	for i, r := range roleTable {
		roles[i] = string(r.Code) + " / " + r.Label
	}

	return ImportInstructions{
		RequiredColumns: []ColumnInfo{
			{Name: "Họ và Tên", Description: "Họ tên đầy đủ của user (bắt buộc)", Example: "Nguyễn Văn A"},
			{Name: "Email", Description: "Email của user (bắt buộc, unique)", Example: "nguyenvana@example.com"},
			{Name: "Mật khẩu", Description: "Mật khẩu của user (bắt buộc)", Example: "password123"},
			{Name: "Số Điện Thoại", Description: "Số điện thoại (bắt buộc)", Example: "0123456789"},
			{Name: "Vai Trò", Description: "Vai trò trong hệ thống (bắt buộc)", Example: string(RoleManager), ValidValues: roles},
		},
		OptionalColumns: []ColumnInfo{
			{Name: "Địa Chỉ", Description: "Địa chỉ của user (tùy chọn)", Example: "123 Đường ABC, Quận 1"},
			{
				Name:        "Trạng Thái",
				Description: "Trạng thái hoạt động (tùy chọn, mặc định: hoạt động)",
				Example:     "hoạt động / không hoạt động",
				ValidValues: []string{"hoạt động", "không hoạt động", "true", "false", "1", "0"},
			},
			{Name: "Phòng Ban ID", Description: "ID của phòng ban (tùy chọn)", Example: "DEPT001"},
			{Name: "Manager ID", Description: "ID của manager (tùy chọn)", Example: "MGR001"},
			{Name: "Ghi Chú", Description: "Ghi chú bổ sung (tùy chọn)", Example: "Ghi chú mẫu"},
		},
		ImportRules: []string{
			"File phải có định dạng CSV với encoding UTF-8",
			"Dòng đầu tiên phải là header chứa tên các cột",
			"Email phải unique - nếu trùng sẽ ghi đè user cũ",
			"Các cột bắt buộc không được để trống",
			"Vai trò phải thuộc danh sách hợp lệ",
			fmt.Sprintf("Kích thước file tối đa %s", FormatSize(maxUploadBytes)),
		},
		Tips: []string{
			"Tải template CSV để có format đúng",
			"Sử dụng Excel hoặc Google Sheets để edit CSV",
			"Lưu file với encoding UTF-8 để hiển thị tiếng Việt đúng",
			"Kiểm tra dữ liệu trước khi import",
			"Backup database trước khi import số lượng lớn",
		},
	}
}

// FormatSize renders a byte count as MB, KB or bytes for messages.
func FormatSize(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
