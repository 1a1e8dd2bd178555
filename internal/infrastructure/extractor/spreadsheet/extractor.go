// Package spreadsheet flattens XLSX workbooks into plain text with
// github.com/xuri/excelize/v2: one block per sheet, rows newline-separated,
// cells tab-separated.
package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", domain.WrapError(domain.ErrCorruptFile, "open workbook", err)
	}
	defer workbook.Close()

	var full strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		fmt.Fprintf(&full, "Sheet %s:\n", sheet)
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			full.WriteString(line)
			full.WriteByte('\n')
		}
		full.WriteByte('\n')
	}
	return strings.TrimSpace(full.String()), nil
}
