package question

// BuildStructuredSchema returns the JSON Schema for a single structured
// question as a generic map. It is embedded in the structuring prompt and
// also used locally to validate every service response.
func BuildStructuredSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":             map[string]any{"type": "string", "pattern": `^neet_\d{4}_[a-z]{3}_\d{3}$`},
			"questionNumber": map[string]any{"type": "integer", "minimum": 1},
			"examInfo": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"year":      map[string]any{"type": "integer", "minimum": 1988, "maximum": 2030},
					"examType":  map[string]any{"type": "string", "enum": []string{"NEET", "AIPMT", "AIIMS", "JIPMER"}},
					"paperCode": map[string]any{"type": "string"},
					"setCode":   map[string]any{"type": "string"},
				},
				"required": []string{"year", "examType", "paperCode"},
			},
			"title":          map[string]any{"type": "string", "minLength": 10},
			"questionText":   map[string]any{"type": "string", "minLength": 20},
			"questionImages": map[string]any{"type": "array"},
			"options": map[string]any{
				"type":     "array",
				"minItems": 4,
				"maxItems": 4,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":        map[string]any{"type": "string", "enum": Labels},
						"text":      map[string]any{"type": "string", "minLength": 1},
						"isCorrect": map[string]any{"type": "boolean"},
						"analysis":  map[string]any{"type": "string", "minLength": 10},
					},
					"required": []string{"id", "text", "isCorrect", "analysis"},
				},
			},
			"correctOption": map[string]any{"type": "string", "enum": Labels},
			"classification": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"subject":       map[string]any{"type": "string", "enum": []string{"Physics", "Chemistry", "Biology"}},
					"chapter":       map[string]any{"type": "string", "minLength": 2},
					"topic":         map[string]any{"type": "string", "minLength": 2},
					"subtopic":      map[string]any{"type": "string"},
					"ncertClass":    map[string]any{"type": "integer", "enum": []int{11, 12}},
					"difficulty":    map[string]any{"type": "string", "enum": []string{"Easy", "Medium", "Hard"}},
					"estimatedTime": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
					"conceptTags": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"minItems": 1,
					},
					"bloomsLevel": map[string]any{"type": "string", "enum": []string{"remember", "understand", "apply", "analyze", "evaluate", "create"}},
				},
				"required": []string{"subject", "chapter", "topic", "ncertClass", "difficulty", "estimatedTime", "conceptTags", "bloomsLevel"},
			},
			"stepByStep": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":   map[string]any{"type": "string", "minLength": 5},
						"content": map[string]any{"type": "string", "minLength": 20},
						"formula": map[string]any{"type": "string"},
						"insight": map[string]any{"type": "string"},
					},
					"required": []string{"title", "content"},
				},
			},
			"solutionImages": map[string]any{"type": "array"},
			"quickMethod":    map[string]any{"type": "object"},
		},
		"required": []string{
			"id", "questionNumber", "examInfo", "title", "questionText",
			"options", "correctOption", "classification", "stepByStep",
		},
	}
}

// BuildDatasetSchema returns the JSON Schema for the merged output document.
func BuildDatasetSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"version":          map[string]any{"type": "string"},
					"lastUpdated":      map[string]any{"type": "string"},
					"totalQuestions":   map[string]any{"type": "integer", "minimum": 0},
					"subject":          map[string]any{"type": "string", "enum": []string{"Physics", "Chemistry", "Biology"}},
					"yearRange":        map[string]any{"type": "string", "pattern": `^\d{4}-\d{4}$`},
					"processingMethod": map[string]any{"type": "string"},
				},
				"required": []string{"version", "lastUpdated", "totalQuestions", "subject", "yearRange"},
			},
			"questions": map[string]any{
				"type":  "array",
				"items": BuildStructuredSchema(),
			},
		},
		"required": []string{"metadata", "questions"},
	}
}
