package sheets

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"google.golang.org/api/sheets/v4"
)

// rangeReference is the sheet-qualified cell range a validation formula
// points at.
type rangeReference struct {
	Sheet string
	Cells string
}

// validationRangeRe matches ONE_OF_RANGE formulas in both spellings the
// API returns: ='Бюджет'!$A$4:$A$60 and =Budget!A4:A60.
var validationRangeRe = regexp.MustCompile(`^=+'?([^'!]+)'?!\$?([A-Z]+)\$?(\d+):\$?([A-Z]+)\$?(\d+)$`)

// parseValidationFormula extracts the referenced range from a data
// validation formula. Anything that is not a plain range reference counts
// as missing configuration: the entry cell's dropdown is the only place
// the category list is defined.
func parseValidationFormula(formula string) (rangeReference, error) {
	m := validationRangeRe.FindStringSubmatch(strings.TrimSpace(formula))
	if m == nil {
		return rangeReference{}, fmt.Errorf("%w: unrecognized validation formula %q", common.ErrConfigSheetMissing, formula)
	}

	return rangeReference{
		Sheet: m[1],
		Cells: fmt.Sprintf("%s%s:%s%s", m[2], m[3], m[4], m[5]),
	}, nil
}

// firstValidationRule digs the first data validation rule out of a
// field-masked Spreadsheets.Get response.
func firstValidationRule(s *sheets.Spreadsheet) *sheets.DataValidationRule {
	for _, sh := range s.Sheets {
		for _, d := range sh.Data {
			for _, r := range d.RowData {
				for _, v := range r.Values {
					if v.DataValidation != nil {
						return v.DataValidation
					}
				}
			}
		}
	}
	return nil
}
