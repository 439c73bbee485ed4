package config

func loadProductionConfig(cfg *Config) {
	cfg.DatabaseFilePath = "/config/data.sqlite"
	cfg.ServerHost = "0.0.0.0"
}
