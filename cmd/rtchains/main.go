package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/RaduLucianR/sag-ros-experiments/cmd/rtchains/cmd"
	"github.com/RaduLucianR/sag-ros-experiments/internal/common/logging"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		logging.WithStacktrace(log.StandardLogger(), err).Error("rtchains failed")
		os.Exit(1)
	}
}
