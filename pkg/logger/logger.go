package logger

import "go.uber.org/zap"

// New builds the process-wide logger. Development mode gets human-readable output.
func New(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
