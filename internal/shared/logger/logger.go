package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New cria o logger estruturado do serviço.
// env "local" usa a config de desenvolvimento (console, nível debug); os demais usam JSON.
func New(serviceName string, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	// sempre garantir que serviço e env entrem como campos padrão
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(
		zap.Fields(
			zap.String("service", serviceName),
			zap.String("env", env),
		),
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Amount padroniza o campo de valores em tokens nos logs
func Amount(v uint64) zap.Field { return zap.Uint64("amount", v) }

// Op padroniza o campo com o nome da operação do ledger
func Op(name string) zap.Field { return zap.String("op", name) }
