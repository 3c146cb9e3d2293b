// Package config loads the application configuration.
//
// A Loader starts from Defaults, merges each file layer on top and then
// applies VISIONFLOW_* environment overrides:
//
//	loader := config.NewLoader()
//	loader.AddLayer("visionflow.yaml")
//	loader.AddLayer("local.json") // overrides the first layer
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//	workerCfg, err := cfg.Worker.ToWorker()
//
// Layers may be JSON or YAML. Durations are written as strings ("50ms") in
// either format. A zero value in a layer never overrides a value set below
// it, so booleans that default to true cannot be switched off by a layer;
// none of the defaults below are true for that reason.
//
// SafeConfig wraps a Config for concurrent readers. Get returns a deep copy
// so callers cannot mutate shared state.
//
// The Get* helpers read loosely typed maps such as module parameters without
// panicking on unexpected types.
package config
