// Package tlg parses the pipe-delimited broker trade log format and the
// packed OCC option symbols it carries.
package tlg

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

// Record prefixes recognized in a trade log. Every other line (section
// headers, account metadata) is skipped.
const (
	stockPrefix  = "STK_TRD|"
	optionPrefix = "OPT_TRD|"
)

// recordFieldCount is the fixed field count of a transaction record. The
// 16th field, the FX rate, may be empty.
const recordFieldCount = 16

// ParseError describes one line that failed to parse.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Message string `json:"message"`
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ParseResult holds the executions and per-line errors from one file, both
// in line order.
type ParseResult struct {
	Executions []models.Execution `json:"executions"`
	Errors     []ParseError       `json:"errors"`
}

// Parse reads an entire trade log. It never fails: malformed records become
// ParseError entries and parsing continues with the next line. Line numbers
// are 1-based.
func Parse(content string) ParseResult {
	var result ParseResult

	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		var class models.AssetClass
		switch {
		case strings.HasPrefix(line, stockPrefix):
			class = models.AssetClassStock
		case strings.HasPrefix(line, optionPrefix):
			class = models.AssetClassOption
		default:
			continue
		}

		exec, err := parseRecord(line, class)
		if err != nil {
			result.Errors = append(result.Errors, ParseError{
				Line:    i + 1,
				Content: line,
				Message: err.Error(),
			})
			continue
		}
		result.Executions = append(result.Executions, exec)
	}

	return result
}

// parseRecord parses one transaction record. Stock and option records share
// the same layout; option records additionally decode field 2 as a packed
// contract symbol.
//
// Layout: prefix|id|symbol|name|exchange|action|flags|date|time|currency|
// quantity|multiplier|price|total|fees|fx_rate
func parseRecord(line string, class models.AssetClass) (models.Execution, error) {
	fields := strings.Split(line, "|")
	if len(fields) < recordFieldCount {
		return models.Execution{}, fmt.Errorf("expected %d fields, got %d", recordFieldCount, len(fields))
	}

	action, ok := models.ParseAction(fields[5])
	if !ok {
		return models.Execution{}, fmt.Errorf("unknown action: %s", fields[5])
	}

	// fields[6] carries broker flags, which the journal does not use.

	execDate, err := parseDate(fields[7])
	if err != nil {
		return models.Execution{}, err
	}

	quantity, err := parseDecimalField("quantity", fields[10])
	if err != nil {
		return models.Execution{}, err
	}
	multiplier, err := parseDecimalField("multiplier", fields[11])
	if err != nil {
		return models.Execution{}, err
	}
	price, err := parseDecimalField("price", fields[12])
	if err != nil {
		return models.Execution{}, err
	}
	total, err := parseDecimalField("total", fields[13])
	if err != nil {
		return models.Execution{}, err
	}
	fees, err := parseDecimalField("fees", fields[14])
	if err != nil {
		return models.Execution{}, err
	}

	var fxRate *decimal.Decimal
	if fields[15] != "" {
		if fx, err := decimal.NewFromString(fields[15]); err == nil {
			fxRate = &fx
		}
	}

	exec := models.Execution{
		BrokerExecutionID: fields[1],
		Symbol:            fields[2],
		Name:              fields[3],
		Exchange:          fields[4],
		Action:            action,
		ExecutionDate:     execDate,
		ExecutionTime:     fields[8],
		Currency:          fields[9],
		Quantity:          quantity,
		Multiplier:        multiplier,
		Price:             price,
		Total:             total,
		Fees:              fees,
		FxRate:            fxRate,
		AssetClass:        class,
	}

	if class == models.AssetClassOption {
		details, err := ParseOCCSymbol(fields[2])
		if err != nil {
			return models.Execution{}, err
		}
		exec.OptionDetails = &details
	}

	return exec, nil
}

// parseDate parses a strict YYYYMMDD date. Invalid calendar dates are
// rejected.
func parseDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("invalid date format: %s", s)
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %s", s)
	}
	return t, nil
}

func parseDecimalField(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %s", name, value)
	}
	return d, nil
}
