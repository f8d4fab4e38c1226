package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportJobMessage announces a queued report export. The worker loads the
// job itself from the database.
type ReportJobMessage struct {
	JobID     int64     `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportJobMessage(jobID int64) *ReportJobMessage {
	return &ReportJobMessage{
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportJobMessageFromJSON decodes a message and rejects one without a job id.
func ReportJobMessageFromJSON(data []byte) (*ReportJobMessage, error) {
	var msg ReportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.JobID <= 0 {
		return nil, errors.New("message has no job_id")
	}
	return &msg, nil
}
