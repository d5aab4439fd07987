package internal

const (
	BuildFile        = "build.yaml"
	DotEnvPath       = "./.env"
	MigrationsDir    = "migrations"
	StateDir         = ".simplebuild"
	TriggerKeyHeader = "X-SimpleBuild-Trigger-Key"
)
