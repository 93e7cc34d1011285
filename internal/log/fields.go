package log

// FieldComponent stamps every record written through Logger.
const FieldComponent = "component"

// Component names used by the binaries.
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)
