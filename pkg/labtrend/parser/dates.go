package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
	"github.com/xuri/excelize/v2"
)

// maxSerial is the serial of 9999-12-31, the last date a workbook can hold.
const maxSerial = 2958465

// ParseHeaderDate resolves a header cell to an observation date.
// Native dates are used as-is and numbers are decoded as workbook date serials.
// Strings go through the corrupted-day repair first, then generic parsing.
func ParseHeaderDate(c models.Cell, date1904 bool) (time.Time, bool) {
	switch c.Kind {
	case models.CellDate:
		return c.Time.UTC(), true
	case models.CellNumber:
		return serialToTime(c.Number, date1904)
	case models.CellString:
		s := strings.TrimSpace(c.Text)
		if t, ok := repairSlashDate(s); ok {
			return t, true
		}
		return parseDateString(s)
	default:
		return time.Time{}, false
	}
}

func serialToTime(serial float64, date1904 bool) (time.Time, bool) {
	if serial <= 0 || serial > maxSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// repairSlashDate handles D/M/Y strings whose day field is out of range (above 31).
// The day is dropped and the first of the month is used.
func repairSlashDate(s string) (time.Time, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if day <= 31 || month < 1 || month > 12 {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

// parseDateString parses free-form date text. Ambiguous slash dates are read
// month-first, falling back to day-first when that fails.
func parseDateString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseAny(s); ok {
		return t, true
	}
	for _, layout := range []string{"2/1/2006", "02/01/2006", "2/1/06", "2-1-2006", "2.1.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAny wraps dateparse, which can panic on some malformed inputs.
func parseAny(s string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}
