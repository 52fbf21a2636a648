package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/orgstage/internal/repository"
)

// Service renders workbook exports of the org snapshot and the audit trail.
type Service struct {
	members repository.MemberRepository
	fields  repository.ProfileFieldRepository
	audit   repository.AuditLogRepository
}

// NewService creates a new export service.
func NewService(
	members repository.MemberRepository,
	fields repository.ProfileFieldRepository,
	audit repository.AuditLogRepository,
) *Service {
	return &Service{
		members: members,
		fields:  fields,
		audit:   audit,
	}
}

// OrgWorkbook builds an XLSX workbook with one row per active member. Profile
// columns follow the field catalog so every export has the same shape.
func (s *Service) OrgWorkbook(ctx context.Context) ([]byte, error) {
	members, err := s.members.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	fields, err := s.fields.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile fields: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Org"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Name", "Email", "Title", "Manager ID", "Manager Name"}
	for _, field := range fields {
		headers = append(headers, field.Label)
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	for i, m := range members {
		managerID := ""
		managerName := ""
		if m.ManagerID != nil {
			managerID = *m.ManagerID
			managerName = names[managerID]
		}
		row := []string{m.ID, m.Name, m.Email, m.Title, managerID, managerName}
		for _, field := range fields {
			row = append(row, m.FieldValueOrEmpty(field.ID).Value)
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return workbookBytes(f)
}

// AuditWorkbook builds an XLSX workbook of the most recent audit entries,
// newest first.
func (s *Service) AuditWorkbook(ctx context.Context, limit int) ([]byte, error) {
	entries, err := s.audit.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Audit"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Time", "Actor ID", "Actor Name", "Action", "Details"}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return nil, err
	}

	for i, entry := range entries {
		row := []string{
			entry.CreatedAt.UTC().Format(time.RFC3339),
			entry.ActorID,
			entry.ActorName,
			string(entry.Action),
			strings.TrimSpace(string(entry.Details)),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return workbookBytes(f)
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func workbookBytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
