package constants

// RunStatus is the canonical outcome stored for each processing run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusOK      RunStatus = "OK"      // all fields normalized
	RunStatusPartial RunStatus = "PARTIAL" // records produced, some fields left raw
	RunStatusFailed  RunStatus = "FAILED"  // aborted at some stage
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageConfig  Stage = "config"
	StageIngest  Stage = "ingest"
	StageExtract Stage = "extract"
	StageMap     Stage = "map"
	StageExport  Stage = "export"
)
