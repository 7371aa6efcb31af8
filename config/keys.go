package config

// Configuration keys.
const (
	KeyPinDir           = "pin_dir"
	KeyInterval         = "interval"
	KeyFlowLimit        = "flow_limit"
	KeyReportFlowLimit  = "report_flow_limit"
	KeyReportTop        = "report_top"
	KeyFormat           = "format"
	KeyResolve          = "resolve"
	KeyOutput           = "output"
	KeyLogLevel         = "log_level"
	KeyMetricsAddr      = "metrics_addr"
	KeyHistoryPath      = "history.path"
	KeyHistoryInterval  = "history.interval"
	KeyHistoryPush      = "history.push_interval"
	KeyAppwriteEndpoint = "appwrite.endpoint"
	KeyAppwriteProject  = "appwrite.project"
	KeyAppwriteAPIKey   = "appwrite.api_key"
	KeyAppwriteDatabase = "appwrite.database"
	KeyAppwriteTable    = "appwrite.table"
)

// EnvPrefix is prepended to every environment variable, with dots turned
// into underscores: QOSMON_HISTORY_PATH.
const EnvPrefix = "QOSMON"

const (
	DefaultInterval        = 1
	DefaultFlowLimit       = 256
	DefaultReportFlowLimit = 65536
	DefaultReportTop       = 20
	DefaultFormat          = "text"
	DefaultLogLevel        = "info"
	DefaultHistoryInterval = "1m"
	DefaultHistoryPush     = "5m"
)
