package knowledge

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// LoadWorkbook reads question banks from an XLSX workbook. Each sheet named after a
// subject holds one bank: a header row, then Question in column A and Answer in column B.
// Sheets with other names are skipped. A subject sheet without questions is an error.
func LoadWorkbook(path string) (map[SubjectID]*QABank, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	banks := make(map[SubjectID]*QABank)
	for _, sheet := range f.GetSheetList() {
		subject, err := ParseSubject(sheet)
		if err != nil {
			slog.Warn("skipping workbook sheet", "path", path, "sheet", sheet)
			continue
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		var entries []Entry
		for i, row := range rows {
			if i == 0 {
				continue // header
			}
			if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
				continue
			}
			e := Entry{Question: row[0]}
			if len(row) > 1 {
				e.Answer = row[1]
			}
			entries = append(entries, e)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("sheet %s: no questions", sheet)
		}

		bank, err := NewQABank(entries)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		banks[subject] = bank
	}
	return banks, nil
}

// WriteWorkbook writes the knowledge base as an XLSX workbook in the layout
// LoadWorkbook reads.
func WriteWorkbook(base *Base, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, subject := range base.Subjects() {
		sheet := string(subject)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		if err := f.SetSheetRow(sheet, "A1", &[]any{"Question", "Answer"}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}

		bank, _ := base.Bank(subject)
		for j, e := range bank.Entries() {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &[]any{e.Question, e.Answer}); err != nil {
				return fmt.Errorf("write %s row %d: %w", sheet, j+2, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
