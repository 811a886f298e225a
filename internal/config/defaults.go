package config

const (
	defaultConfigPath          = "~/.config/ischool/config.toml"
	defaultDataDir             = "~/.local/share/ischool"
	defaultSessionsDir         = "~/.local/share/ischool/sessions"
	defaultLogDir              = "~/.local/share/ischool/logs"
	defaultEnvFile             = ".env"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultAcquisitionWorkers  = 2
	defaultSuspiciousSizeBytes = 100000
	defaultProgressStep        = 5
	defaultUserAgent           = "ischool/dev"
	defaultAnalysisWorkers     = 1
	defaultAnalysisTimeout     = 1800
	defaultQuotaExitCode       = 75
	defaultQuotaBackoffMinutes = 15
	defaultQuotaMaxRetries     = 3
	defaultReportSuffix        = "_Quality_Report_RAG.txt"
	defaultEventBuffer         = 512
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	maxWorkers = 16
)

var (
	defaultFolderHelper    = []string{"python3", "drive_download.py"}
	defaultAnalysisCommand = []string{"python3", "rag_video_analysis.py"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			SessionsDir: defaultSessionsDir,
			LogDir:      defaultLogDir,
			EnvFile:     defaultEnvFile,
			APIBind:     defaultAPIBind,
		},
		Acquisition: Acquisition{
			Workers:             defaultAcquisitionWorkers,
			FolderHelper:        append([]string(nil), defaultFolderHelper...),
			SuspiciousSizeBytes: defaultSuspiciousSizeBytes,
			ProgressStep:        defaultProgressStep,
			UserAgent:           defaultUserAgent,
		},
		Analysis: Analysis{
			Workers:             defaultAnalysisWorkers,
			Command:             append([]string(nil), defaultAnalysisCommand...),
			TimeoutSeconds:      defaultAnalysisTimeout,
			QuotaExitCode:       defaultQuotaExitCode,
			QuotaBackoffMinutes: defaultQuotaBackoffMinutes,
			QuotaMaxRetries:     defaultQuotaMaxRetries,
			ReportSuffix:        defaultReportSuffix,
		},
		Events: Events{
			Buffer: defaultEventBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
