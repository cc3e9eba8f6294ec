package formatter

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
)

// FlightRow is one itinerary parsed out of a flight search result.
type FlightRow struct {
	Index     string
	Flight    string
	Origin    string
	Dest      string
	Departure string
	Arrival   string
	Duration  string
	Price     string
}

var (
	flightRowRe = regexp.MustCompile(`(\d+)\.\s+([A-Z]+\s+\d+)\s+\|\s+([A-Z]{3})\s+→\s+([A-Z]{3})\s*\nDeparture:\s*(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})\s*\|\s*Arrival:\s*(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})\s*\nDuration:\s*(PT\d+H\d*M?)\s*\nPrice:\s*\$([\d.]+)\s*EUR`)
	durationRe  = regexp.MustCompile(`PT(\d+)H(?:(\d+)M)?`)
	slotRe      = regexp.MustCompile(`(\d+)\.\s*(\d{2}:\d{2})\s*(?:AM|PM)\s*-\s*([\d.]+)°C,\s*(.+)`)
	currentRe   = regexp.MustCompile(`(Temperature|Condition|Humidity|Pressure|Wind|Visibility|Country):\s*([^\n]+)`)
)

// ParseFlightRows extracts itinerary rows from the flight agent's listing
// format. Results that do not match yield an empty slice.
func ParseFlightRows(result string) []FlightRow {
	matches := flightRowRe.FindAllStringSubmatch(result, -1)
	rows := make([]FlightRow, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, FlightRow{
			Index:     m[1],
			Flight:    m[2],
			Origin:    m[3],
			Dest:      m[4],
			Departure: m[5],
			Arrival:   m[6],
			Duration:  humanDuration(m[7]),
			Price:     m[8],
		})
	}
	return rows
}

func humanDuration(iso string) string {
	m := durationRe.FindStringSubmatch(iso)
	if m == nil {
		return iso
	}
	if m[2] == "" || m[2] == "0" {
		return m[1] + "h"
	}
	return m[1] + "h " + m[2] + "m"
}

// RenderFlightTable renders parsed flight rows as an HTML table for
// email/Teams embedding. With no parsable rows the raw result is
// returned so information is never dropped.
func RenderFlightTable(result string) string {
	rows := ParseFlightRows(result)
	if len(rows) == 0 {
		return result
	}
	var b strings.Builder
	b.WriteString(`<table style="border-collapse: collapse; width: 100%; font-family: Arial, sans-serif;">`)
	b.WriteString(`<tr style="background-color: #f8f9fa;">`)
	for _, h := range []string{"#", "Flight", "Route", "Departure", "Arrival", "Duration", "Price (EUR)"} {
		fmt.Fprintf(&b, `<th style="padding: 10px 12px; text-align: left; border: 1px solid #dee2e6;">%s</th>`, h)
	}
	b.WriteString("</tr>")
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, cell := range []string{r.Index, r.Flight, r.Origin + " → " + r.Dest, r.Departure, r.Arrival, r.Duration, "$" + r.Price} {
			fmt.Fprintf(&b, `<td style="padding: 8px 12px; border: 1px solid #dee2e6;">%s</td>`, html.EscapeString(cell))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

// RenderDatabaseTable renders a JSON array of rows as an HTML table: a
// key/value block for a single row, a grid for several. Unparsable input
// comes back unchanged.
func RenderDatabaseTable(data string) string {
	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(data), &rows); err != nil || len(rows) == 0 {
		return data
	}

	columns := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	var b strings.Builder
	b.WriteString(`<table style="border-collapse: collapse; font-family: Arial, sans-serif;">`)
	if len(rows) == 1 {
		for _, c := range columns {
			fmt.Fprintf(&b, `<tr><th style="padding: 8px 12px; text-align: left; border: 1px solid #dee2e6; background-color: #f8f9fa;">%s</th><td style="padding: 8px 12px; border: 1px solid #dee2e6;">%s</td></tr>`,
				html.EscapeString(c), html.EscapeString(cellString(rows[0][c])))
		}
	} else {
		b.WriteString("<tr>")
		for _, c := range columns {
			fmt.Fprintf(&b, `<th style="padding: 8px 12px; text-align: left; border: 1px solid #dee2e6; background-color: #f8f9fa;">%s</th>`, html.EscapeString(c))
		}
		b.WriteString("</tr>")
		for _, row := range rows {
			b.WriteString("<tr>")
			for _, c := range columns {
				fmt.Fprintf(&b, `<td style="padding: 8px 12px; border: 1px solid #dee2e6;">%s</td>`, html.EscapeString(cellString(row[c])))
			}
			b.WriteString("</tr>")
		}
	}
	b.WriteString("</table>")
	return b.String()
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// RenderWeather formats a weather result for message embedding: a
// key/value table for current conditions, a slot table for forecasts,
// else the raw text.
func RenderWeather(result string) string {
	if slots := slotRe.FindAllStringSubmatch(result, -1); len(slots) > 0 {
		var b strings.Builder
		b.WriteString(`<table style="border-collapse: collapse; font-family: Arial, sans-serif;">`)
		b.WriteString(`<tr style="background-color: #f8f9fa;"><th style="padding: 8px 12px; border: 1px solid #dee2e6;">Time</th><th style="padding: 8px 12px; border: 1px solid #dee2e6;">Temperature</th><th style="padding: 8px 12px; border: 1px solid #dee2e6;">Condition</th></tr>`)
		for _, s := range slots {
			fmt.Fprintf(&b, `<tr><td style="padding: 8px 12px; border: 1px solid #dee2e6;">%s</td><td style="padding: 8px 12px; border: 1px solid #dee2e6; text-align: center;">%s°C</td><td style="padding: 8px 12px; border: 1px solid #dee2e6;">%s</td></tr>`,
				html.EscapeString(s[2]), html.EscapeString(s[3]), html.EscapeString(strings.TrimSpace(s[4])))
		}
		b.WriteString("</table>")
		return b.String()
	}

	if pairs := currentRe.FindAllStringSubmatch(result, -1); len(pairs) > 0 {
		var b strings.Builder
		b.WriteString(`<table style="border-collapse: collapse; font-family: Arial, sans-serif;">`)
		for _, p := range pairs {
			fmt.Fprintf(&b, `<tr><th style="padding: 8px 12px; text-align: left; border: 1px solid #dee2e6; background-color: #f8f9fa;">%s</th><td style="padding: 8px 12px; border: 1px solid #dee2e6;">%s</td></tr>`,
				html.EscapeString(p[1]), html.EscapeString(strings.TrimSpace(p[2])))
		}
		b.WriteString("</table>")
		return b.String()
	}
	return result
}
