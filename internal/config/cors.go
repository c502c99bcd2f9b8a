package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowCredentials bool
}

func defaultCORS() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowCredentials: true,
	}
}

// LoadCORS 读取 config.yml 中的 origins / methods / credentials，
// 文件不存在时使用环境变量 ALLOWED_ORIGINS 或默认值
func LoadCORS(path string) (CORSConfig, error) {
	cors := defaultCORS()
	if extra := os.Getenv("ALLOWED_ORIGINS"); extra != "" {
		cors.AllowOrigins = splitList(extra)
	}

	if path == "" {
		return cors, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cors, nil
		}
		return cors, fmt.Errorf("config: stat %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("origins", cors.AllowOrigins)
	v.SetDefault("methods", []string{"GET"})
	v.SetDefault("credentials", cors.AllowCredentials)
	if err := v.ReadInConfig(); err != nil {
		return cors, fmt.Errorf("config: read %s: %w", path, err)
	}

	cors.AllowOrigins = v.GetStringSlice("origins")
	cors.AllowMethods = v.GetStringSlice("methods")
	cors.AllowCredentials = v.GetBool("credentials")
	return cors, nil
}

// AllowsAllOrigins 是否放行所有来源
func (c CORSConfig) AllowsAllOrigins() bool {
	for _, o := range c.AllowOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
