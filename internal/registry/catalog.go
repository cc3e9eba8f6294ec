package registry

// The built-in catalog mirrors the tool surface exposed by the downstream
// agents. Deployments can point agents at other hosts via
// agents.endpoints in the config; the tool shapes themselves are static.

func objectSchema(props map[string]string, required ...string) map[string]interface{} {
	properties := make(map[string]interface{}, len(props))
	for name, typ := range props {
		properties[name] = map[string]interface{}{"type": typ}
	}
	req := make([]interface{}, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]interface{}{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": properties,
		"required":   req,
	}
}

func tool(name, description string, props map[string]string, required ...string) ToolCard {
	return ToolCard{
		Name:           name,
		Version:        "v1",
		Description:    description,
		InputSchema:    objectSchema(props, required...),
		RequiredParams: required,
	}
}

// DefaultAgentCards returns the built-in downstream agent catalog.
// endpoints maps agent name to a base URL override; unknown keys are ignored.
func DefaultAgentCards(endpoints map[string]string) []AgentCard {
	agents := []AgentCard{
		{
			Name:        "FlightSearchAgent",
			Description: "Flight search and booking agent with Outlook and Zoom tools",
			ServerURL:   "http://localhost:5002",
			Tools: []ToolCard{
				tool("search_flights", "Search available flights between two airports on a date",
					map[string]string{"source": "string", "destination": "string", "date": "string"},
					"source", "destination", "date"),
				tool("book_flight", "Book a previously returned flight offer",
					map[string]string{"flightOffer": "object", "travelerInfo": "object"},
					"flightOffer", "travelerInfo"),
				tool("search_locations", "Search airports and cities matching a keyword",
					map[string]string{"keyword": "string"},
					"keyword"),
				tool("outlook_send_email", "Send an email via Outlook / Microsoft Graph",
					map[string]string{"to_email": "array", "subject": "string", "body": "string", "cc": "array", "bcc": "array", "isHtml": "boolean"},
					"to_email", "subject", "body"),
				tool("zoom_list_meetings", "List upcoming Zoom meetings", nil),
				tool("zoom_list_today_meetings", "List Zoom meetings scheduled for today", nil),
				tool("zoom_get_meeting_details", "Get details for a Zoom meeting",
					map[string]string{"meetingId": "string"},
					"meetingId"),
				tool("zoom_create_meeting", "Schedule a Zoom meeting",
					map[string]string{"topic": "string", "type": "number", "start_time": "string", "duration": "number", "timezone": "string", "agenda": "string"},
					"topic", "type", "start_time", "duration", "timezone", "agenda"),
				tool("zoom_delete_meeting", "Delete a Zoom meeting by ID",
					map[string]string{"meetingId": "string"},
					"meetingId"),
				tool("zoom_list_past_meeting_participants", "List participants of a past Zoom meeting",
					map[string]string{"meetingUUID": "string"},
					"meetingUUID"),
			},
		},
		{
			Name:        "TeamsAgent",
			Description: "Microsoft Teams integration agent for messages, alerts, and reports",
			ServerURL:   "http://localhost:7000",
			Tools: []ToolCard{
				tool("teams_send_message", "Send a plain message to the Teams channel",
					map[string]string{"message": "string"},
					"message"),
				tool("teams_send_alert", "Send a severity-tagged alert card to Teams",
					map[string]string{"title": "string", "message": "string", "severity": "string"},
					"title", "message", "severity"),
				tool("teams_send_report", "Send a formatted report card to Teams",
					map[string]string{"reportType": "string", "title": "string", "content": "string"},
					"reportType", "title", "content"),
			},
		},
		{
			Name:        "WeatherAgent",
			Description: "Weather information agent backed by OpenWeatherMap",
			ServerURL:   "http://localhost:5003",
			Tools: []ToolCard{
				tool("get_current_weather_by_city", "Current weather for a city",
					map[string]string{"city": "string"},
					"city"),
				tool("get_weather_forecast_by_city", "5-day weather forecast for a city",
					map[string]string{"city": "string"},
					"city"),
				tool("get_current_weather_by_coordinates", "Current weather for coordinates",
					map[string]string{"lat": "number", "lon": "number"},
					"lat", "lon"),
			},
		},
		{
			Name:        "LiveLocationAgent",
			Description: "Live location and geolocation services agent",
			ServerURL:   "http://localhost:5004",
			Tools: []ToolCard{
				tool("get_live_location", "Current location inferred from the caller IP", nil),
				tool("get_location_by_ip", "Location for a specific IP address",
					map[string]string{"ip": "string"}),
				tool("get_location_by_coordinates", "Reverse-geocode coordinates",
					map[string]string{"lat": "number", "lon": "number"},
					"lat", "lon"),
				tool("get_nearby_airports", "Airports near the current or given coordinates",
					map[string]string{"latitude": "number", "longitude": "number", "radius": "number"}),
				tool("get_location_weather", "Current weather at the caller location", nil),
				tool("get_location_timezone", "Timezone for the current or given coordinates",
					map[string]string{"lat": "number", "lon": "number"}),
				tool("get_location_details", "Full location details (city, country, timezone, airports)",
					map[string]string{"include_weather": "boolean", "include_airports": "boolean", "include_timezone": "boolean"}),
			},
		},
		{
			Name:        "PostgresAgent",
			Description: "PostgreSQL database agent with CRUD and health tooling",
			ServerURL:   "http://localhost:5008",
			Tools: []ToolCard{
				tool("execute_query", "Execute an arbitrary SQL query",
					map[string]string{"query": "string"},
					"query"),
				tool("get_table_info", "Column metadata for a table",
					map[string]string{"tableName": "string"},
					"tableName"),
				tool("get_all_tables", "List tables in the database", nil),
				tool("execute_select_query", "Execute a SELECT with pagination support",
					map[string]string{"query": "string", "limit": "number", "offset": "number"},
					"query"),
				tool("execute_insert_query", "Insert a row",
					map[string]string{"tableName": "string", "data": "object"},
					"tableName", "data"),
				tool("execute_update_query", "Update rows matching a condition",
					map[string]string{"tableName": "string", "data": "object", "whereCondition": "string"},
					"tableName", "data", "whereCondition"),
				tool("execute_delete_query", "Delete rows matching a condition",
					map[string]string{"tableName": "string", "whereCondition": "string"},
					"tableName", "whereCondition"),
				tool("get_database_health", "Database connectivity and health check", nil),
				tool("get_database_stats", "Database size and activity statistics", nil),
			},
		},
	}

	for i := range agents {
		if url, ok := endpoints[agents[i].Name]; ok && url != "" {
			agents[i].ServerURL = url
		}
	}
	return agents
}

// SignAgentCards signs every tool in place with the given secret. Used at
// startup so a registry configured with a signing secret accepts the
// built-in catalog.
func SignAgentCards(agents []AgentCard, secret string) error {
	if secret == "" {
		return nil
	}
	for ai := range agents {
		for ti := range agents[ai].Tools {
			tc := agents[ai].Tools[ti]
			tc.AgentName = agents[ai].Name
			if tc.ServerURL == "" {
				tc.ServerURL = agents[ai].ServerURL
			}
			if tc.Endpoint == "" {
				tc.Endpoint = "/a2a"
			}
			checksum, err := ComputeChecksum(tc)
			if err != nil {
				return err
			}
			tc.Checksum = checksum
			sig, err := SignToolCard(tc, secret)
			if err != nil {
				return err
			}
			tc.Signature = sig
			agents[ai].Tools[ti] = tc
		}
	}
	return nil
}
