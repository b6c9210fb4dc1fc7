// pkg/registry/schema.go
package registry

// ActivityRegistry lists the workflow activities the decision worker serves.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

type Activity struct {
	ID            string                 `json:"id"`
	DisplayName   string                 `json:"displayName"`
	Description   string                 `json:"description"`
	TaskType      string                 `json:"taskType"`
	InputSchema   map[string]interface{} `json:"inputSchema"`
	ErrorCodes    []string               `json:"errorCodes"`
	Timeout       string                 `json:"timeout"`
	MaxJobsActive int                    `json:"maxJobsActive"`
	Workflows     []string               `json:"workflows"`
}
