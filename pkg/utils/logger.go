package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig настраивает структурированный логгер.
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal (по умолчанию info)
	Format      string // json, text (по умолчанию json)
	Output      string // путь к файлу; пусто = stderr
	Development bool   // добавляет stacktrace на warn+ и человекочитаемый вывод
}

// Logger оборачивает *zap.Logger, добавляя SugaredLogger и доменные helpers.
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// parseLevel переводит текстовый уровень в zapcore.Level, по умолчанию info.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger создает новый Logger по LogConfig. Никогда не возвращает nil:
// при невозможности открыть Output делает fallback на stderr.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sink := zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			sink = zapcore.AddSync(f)
		}
	}

	core := zapcore.NewCore(encoder, sink, level)

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.AddStacktrace(zapcore.WarnLevel))
	}

	zl := zap.New(core, opts...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// With возвращает дочерний Logger с дополнительными полями.
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// WithComponent добавляет поле component (например, "detector", "executor").
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithExchange добавляет поле exchange (venue в терминах API, сохранено под
// именем, с которым работает остальной логирующий код).
func (l *Logger) WithExchange(name string) *Logger {
	return l.With(Exchange(name))
}

// WithSymbol добавляет поле symbol (идентификатор рынка/токена).
func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(Symbol(symbol))
}

// WithPairID добавляет поле pair_id.
func (l *Logger) WithPairID(id int) *Logger {
	return l.With(PairID(id))
}

// Sugar возвращает SugaredLogger для printf-style логирования.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============================================================
// Конструкторы доменных полей
// ============================================================

func Exchange(name string) zap.Field   { return zap.String("exchange", name) }
func Symbol(symbol string) zap.Field   { return zap.String("symbol", symbol) }
func PairID(id int) zap.Field          { return zap.Int("pair_id", id) }
func OrderID(id string) zap.Field      { return zap.String("order_id", id) }
func Price(price float64) zap.Field    { return zap.Float64("price", price) }
func Volume(volume float64) zap.Field  { return zap.Float64("volume", volume) }
func Spread(spread float64) zap.Field  { return zap.Float64("spread", spread) }
func PNL(pnl float64) zap.Field        { return zap.Float64("pnl", pnl) }
func Side(side string) zap.Field       { return zap.String("side", side) }
func State(state string) zap.Field     { return zap.String("state", state) }
func Latency(ms float64) zap.Field     { return zap.Float64("latency_ms", ms) }
func RequestID(id string) zap.Field    { return zap.String("request_id", id) }
func UserID(id int) zap.Field          { return zap.Int("user_id", id) }
func Component(name string) zap.Field  { return zap.String("component", name) }

// Реэкспорт стандартных конструкторов полей, чтобы вызывающий код не
// импортировал zap напрямую.
func String(key, value string) zap.Field       { return zap.String(key, value) }
func Int(key string, value int) zap.Field      { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field  { return zap.Int64(key, value) }
func Float64(key string, v float64) zap.Field  { return zap.Float64(key, v) }
func Bool(key string, value bool) zap.Field    { return zap.Bool(key, value) }
func Err(err error) zap.Field                  { return zap.Error(err) }
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }

func fieldsToInterface(fields []zap.Field) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		out = append(out, f.Key, enc.Fields[f.Key])
	}
	return out
}

// ============================================================
// Глобальный логгер
// ============================================================

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// GetGlobalLogger возвращает процессный логгер, инициализируя его значениями
// по умолчанию при первом обращении.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// L - короткий алиас для GetGlobalLogger, для частого использования в
// однострочных логах.
func L() *Logger {
	return GetGlobalLogger()
}

// InitGlobalLogger инициализирует и устанавливает глобальный логгер.
func InitGlobalLogger(cfg LogConfig) *Logger {
	l := InitLogger(cfg)
	SetGlobalLogger(l)
	return l
}

// SetGlobalLogger заменяет глобальный логгер (используется в тестах).
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// ============================================================
// Глобальные функции логирования
// ============================================================

func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Error(msg, fields...) }

func Debugf(template string, args ...interface{}) { GetGlobalLogger().sugar.Debugf(template, args...) }
func Infof(template string, args ...interface{})  { GetGlobalLogger().sugar.Infof(template, args...) }
func Warnf(template string, args ...interface{})  { GetGlobalLogger().sugar.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { GetGlobalLogger().sugar.Errorf(template, args...) }
