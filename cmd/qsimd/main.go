package main

import (
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/theapemachine/errnie"
	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/httpapi"
)

func main() {
	viper.SetDefault("listen_addr", ":8621")
	viper.SetDefault("memory_ceiling_bytes", int64(1<<30))
	viper.SetDefault("memory_fraction", 0.0)
	viper.SetDefault("seed", int64(1))
	viper.SetDefault("tunneling_probability", 0.15)
	viper.SetDefault("plateau_window", 10)
	viper.SetDefault("evaluators", 4)
	viper.SetDefault("breaker_reset_timeout", "5s")

	viper.SetConfigName("qsim")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/qsim")
	viper.SetEnvPrefix("QSIM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		errnie.Info("no config file found, using defaults and environment")
	}

	cfg := qsim.NewConfig()
	cfg.MemoryCeilingBytes = viper.GetInt64("memory_ceiling_bytes")
	cfg.MemoryFraction = viper.GetFloat64("memory_fraction")
	cfg.Seed = uint64(viper.GetInt64("seed"))
	cfg.TunnelingProbability = viper.GetFloat64("tunneling_probability")
	cfg.PlateauWindow = viper.GetInt("plateau_window")
	cfg.Evaluators = viper.GetInt("evaluators")
	if d, err := time.ParseDuration(viper.GetString("breaker_reset_timeout")); err == nil {
		cfg.BreakerResetTimeout = d
	}

	api := qsim.NewAPI(cfg)
	defer api.Shutdown()

	addr := viper.GetString("listen_addr")
	errnie.Info("qsimd listening on %s", addr)
	if err := httpapi.NewRouter(api).Run(addr); err != nil {
		errnie.Info("qsimd server exited: %v", err)
		os.Exit(1)
	}
}
