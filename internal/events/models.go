package events

import (
	"encoding/json"
	"time"
)

const (
	JobProgressKind string = "dataforge.pipeline.job.progress"
	JobStatusKind   string = "dataforge.pipeline.job.status"
)

// Envelope is the record handed to a Writer.
type Envelope struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Type   string          `json:"type"`
	Key    string          `json:"key,omitempty"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

type JobProgressEvent struct {
	JobID            int64  `json:"job_id"`
	ProjectID        string `json:"project_id"`
	Progress         int    `json:"progress"`
	Stage            string `json:"stage"`
	ProcessedRecords int    `json:"processed_records"`
	InputRecords     int    `json:"input_records"`
}

type JobStatusEvent struct {
	JobID        int64  `json:"job_id"`
	ProjectID    string `json:"project_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	DatasetID    string `json:"dataset_id,omitempty"`
}
