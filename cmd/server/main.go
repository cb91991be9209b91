package main

import (
	"github.com/vik9541/super-brain-digital-twin/internal/server"
	"github.com/vik9541/super-brain-digital-twin/internal/util"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
