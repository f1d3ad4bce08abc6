package config

// StoreConfig holds the Redis order-store connection settings.
type StoreConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	Password string `mapstructure:"password"`
}
