package domain

type Scenario struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	Template  string `json:"template"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Node struct {
	ID            string  `json:"id"`
	Hostname      string  `json:"hostname"`
	NodeType      string  `json:"node_type" enum:"master,worker"`
	Status        string  `json:"status" enum:"online,offline"`
	Capabilities  string  `json:"capabilities,omitempty"`
	SystemMetrics *string `json:"system_metrics,omitempty"`
	LastSeen      *string `json:"last_seen,omitempty" format:"date-time"`
}

type Job struct {
	ID         string `json:"id"`
	ScenarioID string `json:"scenario_id"`
	JobType    string `json:"job_type"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Conversation struct {
	ID                   string   `json:"id"`
	ScenarioID           *string  `json:"scenario_id,omitempty"`
	Content              string   `json:"content"`
	ModelName            string   `json:"model_name,omitempty"`
	GenerationDurationMS *int64   `json:"generation_duration_ms,omitempty"`
	QualityScore         *float64 `json:"quality_score,omitempty"`
	CreatedAt            string   `json:"created_at" format:"date-time"`
}

// Grade holds the rubric result for one conversation. Nil score pointers
// mean the grading call failed; GradingError carries the diagnostic.
type Grade struct {
	ID               string  `json:"id"`
	ConversationID   string  `json:"conversation_id"`
	RealnessScore    *int    `json:"realness_score"`
	CoherenceScore   *int    `json:"coherence_score"`
	NaturalnessScore *int    `json:"naturalness_score"`
	OverallScore     *int    `json:"overall_score"`
	DomainValid      *bool   `json:"domain_valid"`
	BriefFeedback    string  `json:"brief_feedback,omitempty"`
	GradingError     *string `json:"grading_error,omitempty"`
	GradedAt         string  `json:"graded_at" format:"date-time"`
}

type Model struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NodeID string `json:"node_id,omitempty"`
	Status string `json:"status,omitempty"`
}

type StatusSummary struct {
	OnlineNodes        int `json:"online_nodes"`
	PendingJobs        int `json:"pending_jobs"`
	RunningJobs        int `json:"running_jobs"`
	TotalConversations int `json:"total_conversations"`
	LastHour           int `json:"conversations_last_hour"`
}

type ResetResult struct {
	DeletedGrades        int64 `json:"deleted_grades"`
	DeletedConversations int64 `json:"deleted_conversations"`
	DeletedJobs          int64 `json:"deleted_jobs"`
	MastersReset         int64 `json:"masters_reset"`
}
