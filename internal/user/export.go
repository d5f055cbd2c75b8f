package user

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"qbank/internal/auth"
	"qbank/internal/event"
	"qbank/internal/policy"

	"github.com/xuri/excelize/v2"
)

const exportLimit = 10000

// ExportMembers writes the event's members to an xlsx workbook.
func (s *Service) ExportMembers(ctx context.Context, scope event.Scope) ([]byte, error) {
	if err := policy.Check(policy.CanManageUsers(scope.Actor, scope.EventID)); err != nil {
		return nil, err
	}
	items, err := s.members(ctx, scope.EventID, exportLimit, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	headers := []string{"name", "email", "roles", "created_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, it := range items {
		values := []any{
			it.Name,
			it.Email,
			joinRoles(it.Roles),
			it.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "D", 24)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func joinRoles(roles []auth.Role) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}
