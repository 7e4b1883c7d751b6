/*
importer.go - Spreadsheet roster upload

PURPOSE:
  Accepts an .xlsx roster export, locates the header row, converts data
  rows into batch candidates, and feeds them through the exact same
  reconciliation path as a JSON batch upload.

FILE SHAPE:
  The header row is located by scanning for a recognizable name column
  within the first few rows; leading title/banner rows are tolerated.
  Recognized headers (case/whitespace-insensitive):
    id, employee id        -> identifier
    name, employee, employee name, full name -> display name
    position, title, role  -> position
    department, dept       -> department

SEE ALSO:
  - handlers.go: The reconcile path this feeds into
*/
package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxImportBytes bounds the multipart form held in memory.
const maxImportBytes = 16 << 20

// headerScanRows is how deep we look for the header row.
const headerScanRows = 10

// ImportRoster handles POST /api/attendance/import (multipart, field "file").
func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	inputs, err := parseRosterWorkbook(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Could not read %s", header.Filename), err)
		return
	}

	h.reconcile(w, r, inputs)
}

type columnMap struct {
	id, name, position, department int
}

func parseRosterWorkbook(reader interface{ Read([]byte) (int, error) }) ([]CandidateInput, error) {
	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, err
	}
	defer workbook.Close()

	sheetName := workbook.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}

	rows, err := workbook.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	headerIdx, cols, ok := findHeaderRow(rows)
	if !ok {
		return nil, fmt.Errorf("no name column found in the first %d rows", headerScanRows)
	}

	var inputs []CandidateInput
	for _, row := range rows[headerIdx+1:] {
		in := CandidateInput{
			ID:         cellValue(row, cols.id),
			Name:       cellValue(row, cols.name),
			Position:   cellValue(row, cols.position),
			Department: cellValue(row, cols.department),
		}
		if in.ID == "" && in.Name == "" {
			continue // fully blank row
		}
		inputs = append(inputs, in)
	}

	return inputs, nil
}

func findHeaderRow(rows [][]string) (int, columnMap, bool) {
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	for i := 0; i < limit; i++ {
		cols := columnMap{id: -1, name: -1, position: -1, department: -1}
		for idx, cell := range rows[i] {
			switch normalizeHeader(cell) {
			case "id", "employee id":
				cols.id = idx
			case "name", "employee", "employee name", "full name":
				cols.name = idx
			case "position", "title", "role":
				cols.position = idx
			case "department", "dept":
				cols.department = idx
			}
		}
		if cols.name >= 0 {
			return i, cols, true
		}
	}
	return 0, columnMap{}, false
}

func normalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(header)), " ")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
