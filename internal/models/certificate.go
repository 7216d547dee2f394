package models

// TopicCertificateStat represents certificate statistics for one topic
type TopicCertificateStat struct {
	TopicID      string `json:"topicId"`
	Name         string `json:"name"`
	Completed    int    `json:"completed"`
	Percent      int    `json:"percent"`
	AverageScore int    `json:"averageScore"`
	IsComplete   bool   `json:"isComplete"`
}

// CertificateSummary represents the data shown on a completion certificate
type CertificateSummary struct {
	Name               string                 `json:"name"`
	JobTitle           string                 `json:"jobTitle,omitempty"`
	Company            string                 `json:"company,omitempty"`
	Topics             []TopicCertificateStat `json:"topics"`
	TotalTopics        int                    `json:"totalTopics"`
	CompletedTopics    int                    `json:"completedTopics"`
	TotalCompletedDays int                    `json:"totalCompletedDays"`
	OverallPercent     int                    `json:"overallPercent"`
	AverageScore       int                    `json:"averageScore"`
	Eligible           bool                   `json:"eligible"`
}
