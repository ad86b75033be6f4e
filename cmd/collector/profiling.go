package main

import (
	"quoteflow/internal/config"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
)

type profilerLogger struct{}

func (profilerLogger) Infof(_ string, _ ...interface{})           {}
func (profilerLogger) Debugf(_ string, _ ...interface{})          {}
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }

func startProfiler(cfg config.ProfilingConfig) (func(), error) {
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.AppName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = profiler.Stop() }, nil
}
