package sheets

import (
	"regexp"
	"strings"
)

// spreadsheetURLRe matches the id segment of a pasted Google Sheets URL.
var spreadsheetURLRe = regexp.MustCompile(`spreadsheets/d/([a-zA-Z0-9-_]+)`)

// ExtractSpreadsheetID pulls the spreadsheet id out of a pasted URL. Input
// that is not a URL is assumed to already be a bare id and returned
// trimmed, so users can paste either form.
func ExtractSpreadsheetID(s string) string {
	s = strings.TrimSpace(s)
	if m := spreadsheetURLRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
