package internal

const (
	DotEnvPath          = "./.env"
	MigrationsDir       = "migrations"
	DBTimestampLayout   = "2006-01-02 15:04:05"
	ReportTimeLayout    = "2006-01-02 15:04:05 MST"
	APIKeyHeader        = "X-SecPipe-API-Key"
	AggregateReportName = "aggregate-report.html"
)
