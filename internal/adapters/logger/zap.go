package logger

import (
	"context"
	"os"
	"sync"

	"github.com/athebyme/listing-pipeline/pkg/interfaces"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	instance *ZapLogger
	once     sync.Once
)

// ZapLogger адаптер для Zap, реализующий LoggerPort
type ZapLogger struct {
	logger *zap.SugaredLogger
	level  zap.AtomicLevel
}

// NewZapLogger создает новый логгер на основе Zap
func NewZapLogger(level string, isProduction bool) (interfaces.LoggerPort, error) {
	var err error
	once.Do(func() {
		instance = &ZapLogger{}
		err = instance.init(level, isProduction)
	})

	if err != nil {
		return nil, err
	}

	return instance, nil
}

// NewNopLogger создает логгер, который ничего не пишет. Используется в тестах и CLI с флагом -quiet
func NewNopLogger() interfaces.LoggerPort {
	return &ZapLogger{
		logger: zap.NewNop().Sugar(),
		level:  zap.NewAtomicLevelAt(zapcore.FatalLevel),
	}
}

// init инициализирует логгер
func (z *ZapLogger) init(levelStr string, isProduction bool) error {
	var config zap.Config

	if isProduction {
		config = zap.NewProductionConfig()
		// Настройки для production
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		// Настройки для development
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableCaller = false
		config.DisableStacktrace = false
	}

	// Парсинг уровня логирования
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = zapcore.InfoLevel
	}
	z.level = zap.NewAtomicLevelAt(level)
	config.Level = z.level

	// Настройка вывода
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	// Создание логгера
	logger, err := config.Build()
	if err != nil {
		return err
	}

	z.logger = logger.Sugar()
	return nil
}

// GetLoggerLevel преобразует строковый уровень логирования в LogLevel
func GetLoggerLevel(levelStr string) interfaces.LogLevel {
	switch levelStr {
	case "debug":
		return interfaces.DebugLevel
	case "info":
		return interfaces.InfoLevel
	case "warn":
		return interfaces.WarnLevel
	case "error":
		return interfaces.ErrorLevel
	case "fatal":
		return interfaces.FatalLevel
	case "panic":
		return interfaces.PanicLevel
	default:
		return interfaces.InfoLevel
	}
}

// convertToZapFields преобразует LogField в zap.Field
func convertToZapFields(args ...interface{}) []interface{} {
	for i, arg := range args {
		if field, ok := arg.(interfaces.LogField); ok {
			args[i] = zap.Any(field.Key, field.Value)
		}
	}
	return args
}

// extractFieldsFromContext извлекает поля из контекста
func (z *ZapLogger) extractFieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	for _, key := range []interfaces.ContextKey{
		interfaces.RequestIDKey,
		interfaces.TraceIDKey,
		interfaces.UserIDKey,
		interfaces.BatchIDKey,
	} {
		if v := interfaces.StringFromContext(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}

	return fields
}

// Debug реализация интерфейса LoggerPort
func (z *ZapLogger) Debug(msg string, args ...interface{}) {
	z.logger.Debugw(msg, convertToZapFields(args...)...)
}

// Info реализация интерфейса LoggerPort
func (z *ZapLogger) Info(msg string, args ...interface{}) {
	z.logger.Infow(msg, convertToZapFields(args...)...)
}

// Warn реализация интерфейса LoggerPort
func (z *ZapLogger) Warn(msg string, args ...interface{}) {
	z.logger.Warnw(msg, convertToZapFields(args...)...)
}

// Error реализация интерфейса LoggerPort
func (z *ZapLogger) Error(msg string, args ...interface{}) {
	z.logger.Errorw(msg, convertToZapFields(args...)...)
}

// Fatal реализация интерфейса LoggerPort
func (z *ZapLogger) Fatal(msg string, args ...interface{}) {
	z.logger.Fatalw(msg, convertToZapFields(args...)...)
	os.Exit(1)
}

// Panic реализация интерфейса LoggerPort
func (z *ZapLogger) Panic(msg string, args ...interface{}) {
	z.logger.Panicw(msg, convertToZapFields(args...)...)
}

// DebugWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) DebugWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Debugw(msg, append(convertToZapFields(args...), fields...)...)
}

// InfoWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) InfoWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Infow(msg, append(convertToZapFields(args...), fields...)...)
}

// WarnWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) WarnWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Warnw(msg, append(convertToZapFields(args...), fields...)...)
}

// ErrorWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) ErrorWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Errorw(msg, append(convertToZapFields(args...), fields...)...)
}

// FatalWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) FatalWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Fatalw(msg, append(convertToZapFields(args...), fields...)...)
	os.Exit(1)
}

// PanicWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) PanicWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Panicw(msg, append(convertToZapFields(args...), fields...)...)
}

// WithFields реализация интерфейса LoggerPort
func (z *ZapLogger) WithFields(fields ...interfaces.LogField) interfaces.LoggerPort {
	newLogger := &ZapLogger{level: z.level}
	zapFields := make([]interface{}, 0, len(fields)*2)
	for _, field := range fields {
		zapFields = append(zapFields, field.Key, field.Value)
	}
	newLogger.logger = z.logger.With(zapFields...)
	return newLogger
}

// WithField реализация интерфейса LoggerPort
func (z *ZapLogger) WithField(key string, value interface{}) interfaces.LoggerPort {
	newLogger := &ZapLogger{level: z.level}
	newLogger.logger = z.logger.With(key, value)
	return newLogger
}

// WithBatch реализация интерфейса LoggerPort
func (z *ZapLogger) WithBatch(batchID string) interfaces.LoggerPort {
	return z.WithField(string(interfaces.BatchIDKey), batchID)
}

// WithTraceID реализация интерфейса LoggerPort
func (z *ZapLogger) WithTraceID(traceID string) interfaces.LoggerPort {
	return z.WithField("trace_id", traceID)
}

var zapLevels = map[interfaces.LogLevel]zapcore.Level{
	interfaces.DebugLevel: zapcore.DebugLevel,
	interfaces.InfoLevel:  zapcore.InfoLevel,
	interfaces.WarnLevel:  zapcore.WarnLevel,
	interfaces.ErrorLevel: zapcore.ErrorLevel,
	interfaces.FatalLevel: zapcore.FatalLevel,
	interfaces.PanicLevel: zapcore.PanicLevel,
}

// SetLevel реализация интерфейса LoggerPort
func (z *ZapLogger) SetLevel(level interfaces.LogLevel) {
	zl, ok := zapLevels[level]
	if !ok {
		zl = zapcore.InfoLevel
	}
	z.level.SetLevel(zl)
}

// GetLevel реализация интерфейса LoggerPort
func (z *ZapLogger) GetLevel() interfaces.LogLevel {
	current := z.level.Level()
	for l, zl := range zapLevels {
		if zl == current {
			return l
		}
	}
	return interfaces.InfoLevel
}

// Flush реализация интерфейса LoggerPort
func (z *ZapLogger) Flush() error {
	return z.logger.Sync()
}

// Sync реализация интерфейса LoggerPort
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
