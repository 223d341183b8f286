// Package logger bootstraps the global zap logger. Packages log through
// zap.L() after Init has run.
package logger

import "go.uber.org/zap"

func Init(environment string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
