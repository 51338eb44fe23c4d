package jobs

// Payloads stay ID-based; the worker loads details from the DB.

type AnnouncementPublishedPayload struct {
	AnnouncementID string `json:"announcementId"`
	ActorID        string `json:"actorId,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
}

type MemberStatusChangedPayload struct {
	UserID    string `json:"userId"`
	Status    string `json:"status"`
	ActorID   string `json:"actorId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ContentReportedPayload struct {
	ReportID  string `json:"reportId"`
	RequestID string `json:"requestId,omitempty"`
}
