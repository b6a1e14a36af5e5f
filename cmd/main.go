package main

import (
	"os"

	"solesync/internal/app"

	"github.com/sirupsen/logrus"
)

// @title SoleSync API
// @version 1.0
// @description Market-data synchronization and cross-provider price aggregation for sneaker portfolios.
// @BasePath /api/v1
func main() {
	if err := app.Run(); err != nil {
		logrus.WithError(err).Error("Application stopped with error")
		os.Exit(1)
	}
}
