package config

import (
	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"SOCIAL_POST_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"SOCIAL_POST_PG_PORT" env-default:"5432"`
	Database string `env:"SOCIAL_POST_PG_DATABASE" env-default:"social_post"`
	User     string `env:"SOCIAL_POST_PG_USER" env-default:"social_post"`
	Password string `env:"SOCIAL_POST_PG_PASSWORD" env-default:"pwd"`
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}
