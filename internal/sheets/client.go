package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"github.com/moneytalks-bot/moneytalks/internal/service"
	"google.golang.org/api/sheets/v4"
)

// amountColumnIndex is the 0-based offset of the amount cell inside the
// A:F window. A row whose amount cell is empty is considered free.
const amountColumnIndex = 4

// dateLayout renders the date cell; it goes in as USER_ENTERED so the
// sheet stores a real date value rather than text.
const dateLayout = "02.01.2006"

// Client is the Google Sheets ledger transport.
type Client struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewClient creates a Google Sheets client from the configured auth method.
func NewClient(ctx context.Context, config Config, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		config:  config,
		service: svc,
		logger:  logger,
	}, nil
}

// AppendRow writes one transaction row into the first free row of the
// section. When the row's marker is already present in the marker column,
// a previous attempt got through and the existing row is reported instead
// of writing a second one.
func (c *Client) AppendRow(ctx context.Context, spreadsheetID, section string, row service.LedgerRow) (int64, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	markerCol := c.config.MarkerColumn
	resp, err := c.service.Spreadsheets.Values.BatchGet(spreadsheetID).
		Ranges(rangeRef(section, "A:F"), rangeRef(section, markerCol+":"+markerCol)).
		Context(ctx).
		Do()
	if err != nil {
		return 0, mapAPIError(err)
	}

	var data, markers [][]any
	if len(resp.ValueRanges) > 0 {
		data = resp.ValueRanges[0].Values
	}
	if len(resp.ValueRanges) > 1 {
		markers = resp.ValueRanges[1].Values
	}

	if row.Marker != "" {
		if existing := findMarkerRow(markers, row.Marker); existing > 0 {
			c.logger.Warn("marker already present, not appending again",
				"section", section,
				"marker", row.Marker,
				"row", existing)
			return existing, nil
		}
	}

	target := nextRowIndex(data)

	update := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{
				Range:  rangeRef(section, fmt.Sprintf("B%d:F%d", target, target)),
				Values: [][]any{{row.MonthLabel, row.Category, row.Comment, row.Amount, row.Currency}},
			},
		},
	}
	if row.Marker != "" {
		update.Data = append(update.Data, &sheets.ValueRange{
			Range:  rangeRef(section, fmt.Sprintf("%s%d", markerCol, target)),
			Values: [][]any{{row.Marker}},
		})
	}
	if row.Username != "" {
		update.Data = append(update.Data, &sheets.ValueRange{
			Range:  rangeRef(section, fmt.Sprintf("%s%d", c.config.UserColumn, target)),
			Values: [][]any{{row.Username}},
		})
	}

	if _, err := c.service.Spreadsheets.Values.BatchUpdate(spreadsheetID, update).Context(ctx).Do(); err != nil {
		return 0, mapAPIError(err)
	}

	dateUpdate := &sheets.ValueRange{Values: [][]any{{row.Date.Format(dateLayout)}}}
	_, err = c.service.Spreadsheets.Values.Update(spreadsheetID, rangeRef(section, fmt.Sprintf("A%d", target)), dateUpdate).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return 0, mapAPIError(err)
	}

	c.logger.Info("ledger row appended",
		"section", section,
		"row", target,
		"marker", row.Marker)

	return target, nil
}

// ReadCategories discovers the category set of a section by following the
// data-validation rule on the next entry cell of the category column. The
// rule's range formula points at the list the spreadsheet owner maintains;
// its values are the closed category set.
func (c *Client) ReadCategories(ctx context.Context, spreadsheetID, section string) ([]string, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, rangeRef(section, "A:F")).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err)
	}

	entryRow := nextRowIndex(resp.Values)
	cell := rangeRef(section, fmt.Sprintf("%s%d", c.config.CategoryColumn, entryRow))

	formula, err := c.validationFormula(ctx, spreadsheetID, cell)
	if err != nil {
		return nil, err
	}

	ref, err := parseValidationFormula(formula)
	if err != nil {
		return nil, err
	}

	valuesResp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, rangeRef(ref.Sheet, ref.Cells)).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError(err)
	}

	categories := flattenValues(valuesResp.Values)
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: validation range %s!%s holds no values", common.ErrConfigSheetMissing, ref.Sheet, ref.Cells)
	}

	c.logger.Debug("categories discovered",
		"section", section,
		"count", len(categories))

	return categories, nil
}

// DeleteRowByMarker removes the row whose marker column matches marker.
func (c *Client) DeleteRowByMarker(ctx context.Context, spreadsheetID, section, marker string) error {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	markerCol := c.config.MarkerColumn
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, rangeRef(section, markerCol+":"+markerCol)).Context(ctx).Do()
	if err != nil {
		return mapAPIError(err)
	}

	row := findMarkerRow(resp.Values, marker)
	if row == 0 {
		return fmt.Errorf("marker %s in %s: %w", marker, section, common.ErrNotFound)
	}

	sheetID, err := c.sheetID(ctx, spreadsheetID, section)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: row - 1,
					EndIndex:   row,
				},
			},
		}},
	}
	if _, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return mapAPIError(err)
	}

	c.logger.Info("ledger row deleted",
		"section", section,
		"marker", marker,
		"row", row)

	return nil
}

func (c *Client) validationFormula(ctx context.Context, spreadsheetID, cell string) (string, error) {
	resp, err := c.service.Spreadsheets.Get(spreadsheetID).
		Ranges(cell).
		Fields("sheets.data.rowData.values.dataValidation").
		Context(ctx).
		Do()
	if err != nil {
		return "", mapAPIError(err)
	}

	rule := firstValidationRule(resp)
	if rule == nil || rule.Condition == nil || len(rule.Condition.Values) == 0 {
		return "", fmt.Errorf("%w: no data validation rule on entry cell %s", common.ErrConfigSheetMissing, cell)
	}

	return rule.Condition.Values[0].UserEnteredValue, nil
}

func (c *Client) sheetID(ctx context.Context, spreadsheetID, section string) (int64, error) {
	resp, err := c.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return 0, mapAPIError(err)
	}

	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == section {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q: %w", section, common.ErrNotFound)
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}

// nextRowIndex finds the first 1-based row whose amount cell is empty.
// Header rows are skipped naturally because their amount cell carries the
// header text.
func nextRowIndex(values [][]any) int64 {
	for i, row := range values {
		if len(row) <= amountColumnIndex {
			return int64(i + 1)
		}
		if s, ok := row[amountColumnIndex].(string); ok && strings.TrimSpace(s) == "" {
			return int64(i + 1)
		}
	}
	return int64(len(values) + 1)
}

// findMarkerRow returns the 1-based row holding marker, or 0.
func findMarkerRow(values [][]any, marker string) int64 {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return 0
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if s, ok := row[0].(string); ok && strings.TrimSpace(s) == marker {
			return int64(i + 1)
		}
	}
	return 0
}

func flattenValues(values [][]any) []string {
	var out []string
	for _, row := range values {
		for _, cell := range row {
			if s, ok := cell.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		}
	}
	return out
}

// rangeRef builds an A1 range with the sheet name quoted, since ledger
// sheet names routinely contain spaces.
func rangeRef(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}
