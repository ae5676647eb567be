package configuration

type StatisticsConfig struct {
	Enabled bool         `json:"enabled" yaml:"enabled"`
	Port    int          `json:"port" yaml:"port"`
	Influx  InfluxConfig `json:"influx" yaml:"influx"`
}

type InfluxConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Url     string `json:"url" yaml:"url"`
	Token   string `json:"token" yaml:"token"`
	Org     string `json:"org" yaml:"org"`
	Bucket  string `json:"bucket" yaml:"bucket"`
}
