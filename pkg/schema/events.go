// pkg/schema/events.go
package schema

type ConversionRequested struct {
	ID         string             `json:"id"`
	Filename   string             `json:"filename"`
	Path       string             `json:"path"`
	Settings   ConversionSettings `json:"settings"`
	HappenedAt int64              `json:"happened_at"`
}

type ProcessingStage string

const (
	StageValidation ProcessingStage = "validation"
	StageDecode     ProcessingStage = "decode"
	StageTransform  ProcessingStage = "transform"
	StageEncode     ProcessingStage = "encode"
	StagePackage    ProcessingStage = "package"
	StageCompleted  ProcessingStage = "completed"
	StageFailed     ProcessingStage = "failed"
	StageCancelled  ProcessingStage = "cancelled"
)

type FailureType string

const (
	FailureTypeRetryable  FailureType = "retryable"
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeValidation FailureType = "validation"
)

type ConversionResult struct {
	Filename          string `json:"filename"`
	Path              string `json:"path,omitempty"`
	Format            string `json:"format"`
	Bytes             int64  `json:"bytes"`
	Status            string `json:"status"`
	MergedIntoSibling bool   `json:"merged_into_sibling,omitempty"`
}

type ConversionLifecycleEvent struct {
	JobID           string          `json:"job_id"`
	SourceFilename  string          `json:"source_filename,omitempty"`
	Stage           ProcessingStage `json:"stage"`
	Percent         int             `json:"percent,omitempty"`
	ProcessingStart int64           `json:"processing_start,omitempty"`
	ProcessingEnd   int64           `json:"processing_end,omitempty"`
	Error           string          `json:"error,omitempty"`
	FailureType     FailureType     `json:"failure_type,omitempty"`
	HappenedAt      int64           `json:"happened_at"`
}

type ConversionDone struct {
	ID               string                     `json:"id"`
	SourcePath       string                     `json:"source_path"`
	TargetFormat     string                     `json:"target_format"`
	TotalProcessed   int                        `json:"total_processed"`
	TotalFailed      int                        `json:"total_failed"`
	ProcessingTimeMs int64                      `json:"processing_time_ms"`
	Results          []ConversionResult         `json:"results,omitempty"`
	Lifecycle        []ConversionLifecycleEvent `json:"lifecycle,omitempty"`
	Error            string                     `json:"error,omitempty"`
	FailureType      FailureType                `json:"failure_type,omitempty"`
	HappenedAt       int64                      `json:"happened_at"`
}
