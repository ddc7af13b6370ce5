package amp

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"
)

var (
	cfgOnce sync.Once
	config  = _ampconfig{}
)

// _ampconfig is a "hidden" struct, just use `ampConfig`
type _ampconfig struct {
	Tolerance       float64
	MaxIterations   int
	MinDamping      float64
	Step            float64
	ParallelNetwork bool
	SurrogateSize   int
	outputDir       string
	logLevel        string
	logFile         string
	logMaxSizeMB    int
	logMaxBackups   int
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("solver.tolerance", 1e-8)
	v.SetDefault("solver.max_iterations", 40)
	v.SetDefault("solver.min_damping", 1./64)
	v.SetDefault("solver.step", 1e-7)
	v.SetDefault("energy.parallel", false)
	v.SetDefault("noise.surrogate_size", 4096)
	v.SetDefault("general.output_path", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// loadConfig reads conf.toml from confPath. An empty confPath yields the defaults.
func loadConfig(confPath string) (_ampconfig, error) {
	v := viper.New()
	setConfigDefaults(v)
	if confPath != "" {
		v.SetConfigName("conf")
		v.SetConfigType("toml")
		v.AddConfigPath(confPath)
		if err := v.ReadInConfig(); err != nil {
			return _ampconfig{}, fmt.Errorf("%s/conf.toml: %w", confPath, err)
		}
	}
	c := _ampconfig{
		Tolerance:       v.GetFloat64("solver.tolerance"),
		MaxIterations:   v.GetInt("solver.max_iterations"),
		MinDamping:      v.GetFloat64("solver.min_damping"),
		Step:            v.GetFloat64("solver.step"),
		ParallelNetwork: v.GetBool("energy.parallel"),
		SurrogateSize:   v.GetInt("noise.surrogate_size"),
		outputDir:       v.GetString("general.output_path"),
		logLevel:        v.GetString("log.level"),
		logFile:         v.GetString("log.file"),
		logMaxSizeMB:    v.GetInt("log.max_size_mb"),
		logMaxBackups:   v.GetInt("log.max_backups"),
	}
	if c.Tolerance <= 0 || c.MaxIterations <= 0 {
		return _ampconfig{}, fmt.Errorf("%s/conf.toml: solver tolerance and max_iterations must be positive", confPath)
	}
	if c.MinDamping <= 0 || c.MinDamping > 1 {
		return _ampconfig{}, fmt.Errorf("%s/conf.toml: solver.min_damping must be in (0, 1]", confPath)
	}
	return c, nil
}

// ampConfig returns the amp configuration, read once from the directory named by the
// AMP_CONFIG environment variable.
func ampConfig() _ampconfig {
	cfgOnce.Do(func() {
		c, err := loadConfig(os.Getenv("AMP_CONFIG"))
		if err != nil {
			panic(err)
		}
		config = c
	})
	return config
}
