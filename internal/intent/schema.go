package intent

import "google.golang.org/genai"

func stringSchema(description string, enum ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description, Enum: enum}
}

// ResponseSchema is the JSON schema the model must answer with.
func ResponseSchema() *genai.Schema {
	actions := make([]string, len(Actions))
	for i, a := range Actions {
		actions[i] = string(a)
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action": stringSchema("Determines the user's intent.", actions...),
			"transactionData": {
				Type:        genai.TypeObject,
				Description: "Data if action is 'add' (Financial).",
				Properties: map[string]*genai.Schema{
					"description": stringSchema(""),
					"category":    stringSchema(""),
					"amount":      {Type: genai.TypeNumber},
					"type":        stringSchema("", "income", "expense"),
					"date":        stringSchema("ISO 8601 date string (YYYY-MM-DD)"),
				},
			},
			"categoryData": {
				Type:        genai.TypeObject,
				Description: "Data if action is 'add_category' or 'remove_category'.",
				Properties: map[string]*genai.Schema{
					"name": stringSchema(""),
					"type": stringSchema("", "income", "expense", "both"),
				},
			},
			"appointmentData": {
				Type:        genai.TypeObject,
				Description: "Data if action is 'add_appointment' (Agenda).",
				Properties: map[string]*genai.Schema{
					"title":         stringSchema("Short title of the event"),
					"description":   stringSchema("More details if provided"),
					"date":          stringSchema("ISO 8601 date (YYYY-MM-DD)"),
					"time":          stringSchema("HH:mm format"),
					"repeat":        stringSchema("", "none", "daily", "weekly", "monthly"),
					"repeatEndDate": stringSchema("ISO 8601 date (YYYY-MM-DD) if specified"),
				},
			},
			"filterCriteria": {
				Type:        genai.TypeObject,
				Description: "Criteria if action is 'filter'. Used for extracts/statements.",
				Properties: map[string]*genai.Schema{
					"categories": {
						Type:        genai.TypeArray,
						Items:       stringSchema(""),
						Description: "List of categories to filter by",
					},
					"type":      stringSchema("", "income", "expense"),
					"startDate": stringSchema("Start date YYYY-MM-DD"),
					"endDate":   stringSchema("End date YYYY-MM-DD"),
				},
			},
			"message": stringSchema("The answer to the user's question, confirmation message, or error."),
		},
		Required: []string{"action"},
	}
}
