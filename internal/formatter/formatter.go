package formatter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Summarize maps a (tool, result) pair to a short user-facing narrative.
// Pure function: the same inputs always produce the same output.
func Summarize(toolName, result string) string {
	switch toolName {
	case "search_flights":
		if strings.Contains(result, "Departure:") {
			return "✅ Flight search completed! Here are the available options:\n\n" + result
		}
		return "✅ Flight search completed.\n\n" + result
	case "book_flight":
		return "✅ Your flight has been booked!\n\n" + result
	case "get_current_weather_by_city", "get_current_weather_by_coordinates", "get_location_weather":
		return result
	case "get_weather_forecast_by_city":
		return result
	case "get_live_location", "get_location_by_ip", "get_location_by_coordinates", "get_location_details":
		return result
	case "outlook_send_email":
		return "✅ Your email has been sent successfully!"
	case "teams_send_message":
		return "✅ Your message has been posted to Teams."
	case "teams_send_alert":
		return "✅ The alert has been posted to Teams."
	case "teams_send_report":
		return "✅ The report has been posted to Teams."
	case "zoom_create_meeting":
		return "✅ Your Zoom meeting has been scheduled!\n\n" + RenderMeetingDetails(result)
	case "zoom_delete_meeting":
		return "✅ The Zoom meeting has been deleted."
	case "zoom_list_meetings", "zoom_list_today_meetings":
		return summarizeMeetingList(result)
	case "execute_query", "execute_select_query":
		return "✅ Database query executed successfully.\n\n" + result
	case "get_all_tables", "get_table_info", "get_database_health", "get_database_stats":
		return result
	default:
		return fmt.Sprintf("I have completed the %s operation successfully.", toolName)
	}
}

type meetingPayload struct {
	TotalMeetingsScheduled *int      `json:"total_meetings_scheduled"`
	TotalRecords           *int      `json:"total_records"`
	Meetings               []meeting `json:"meetings"`
}

type meeting struct {
	ID        json.Number `json:"id"`
	Topic     string      `json:"topic"`
	StartTime string      `json:"start_time"`
	Duration  int         `json:"duration"`
	JoinURL   string      `json:"join_url"`
	Password  string      `json:"password"`
}

var (
	jsonBlobRe = regexp.MustCompile(`\{[\s\S]*\}`)
	zoomURLRe  = regexp.MustCompile(`https://\S+zoom\S+`)
)

func summarizeMeetingList(result string) string {
	blob := jsonBlobRe.FindString(result)
	if blob == "" {
		return result
	}
	var payload meetingPayload
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return result
	}
	total := len(payload.Meetings)
	if payload.TotalMeetingsScheduled != nil {
		total = *payload.TotalMeetingsScheduled
	} else if payload.TotalRecords != nil {
		total = *payload.TotalRecords
	}
	if total == 0 {
		return "✅ You have no Zoom meetings scheduled."
	}
	plural := ""
	if total > 1 {
		plural = "s"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Successfully retrieved your Zoom meetings!\n\nYou currently have %d meeting%s scheduled:\n", total, plural)
	for i, m := range payload.Meetings {
		fmt.Fprintf(&b, "\n%d. %s\n   Meeting ID: %s\n   Start: %s\n   Duration: %d minutes\n", i+1, m.Topic, m.ID.String(), m.StartTime, m.Duration)
		if m.JoinURL != "" {
			fmt.Fprintf(&b, "   Join URL: %s\n", m.JoinURL)
		}
	}
	return b.String()
}

// RenderMeetingDetails formats a Zoom meeting payload as a key/value
// block (topic, ID, start time, duration, join URL, password). Unparsable
// input is returned as-is.
func RenderMeetingDetails(result string) string {
	blob := jsonBlobRe.FindString(result)
	if blob == "" {
		return result
	}
	var m meeting
	if err := json.Unmarshal([]byte(blob), &m); err != nil || m.Topic == "" {
		return result
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", m.Topic)
	fmt.Fprintf(&b, "Meeting ID: %s\n", m.ID.String())
	fmt.Fprintf(&b, "Start Time: %s\n", m.StartTime)
	fmt.Fprintf(&b, "Duration: %d minutes\n", m.Duration)
	if m.JoinURL != "" {
		fmt.Fprintf(&b, "Join URL: %s\n", m.JoinURL)
	}
	if m.Password != "" {
		fmt.Fprintf(&b, "Password: %s\n", m.Password)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderMeetingLink extracts the join URL alone from a Zoom meeting
// payload, falling back to the raw result.
func RenderMeetingLink(result string) string {
	blob := jsonBlobRe.FindString(result)
	if blob != "" {
		var m meeting
		if err := json.Unmarshal([]byte(blob), &m); err == nil && m.JoinURL != "" {
			return m.JoinURL
		}
	}
	if m := zoomURLRe.FindString(result); m != "" {
		return m
	}
	return result
}
