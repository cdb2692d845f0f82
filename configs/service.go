package configs

type ServiceConfig struct {
	HttpPort string `yaml:"http_port"`
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
}
