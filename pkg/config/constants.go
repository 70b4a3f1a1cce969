package config

// EnvPrefix is the envconfig prefix shared by every CaseDesk binary.
const EnvPrefix = "CASEDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "CASEDESK_DB_DSN"
	EnvDBHost = "CASEDESK_DB_HOST"
	EnvDBUser = "CASEDESK_DB_USER"
	EnvDBName = "CASEDESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
