package option

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/configster/log"
	"github.com/hatlonely/configster/log/logger"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableParserOptions struct {
	Parser ParserOptions `cfg:"parser"`

	// Logger 日志记录器配置
	Logger *ref.TypeOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 组件名称标识
	// - Metrics: 作为指标名前缀
	// - Logging: 作为 component 字段值
	// - Tracing: 作为 span 的 component 属性
	Name string `cfg:"name" def:"configster"`

	// Registerer 指标注册位置，为空时使用 prometheus.DefaultRegisterer
	Registerer prometheus.Registerer `cfg:"-"`
}

// ParserMetrics 解析相关的 prometheus 指标
type ParserMetrics struct {
	parseCounter  *prometheus.CounterVec
	lineCounter   *prometheus.CounterVec
	parseDuration *prometheus.HistogramVec
}

// NewParserMetrics 创建并注册指标，同名指标已经注册过时复用已有的
func NewParserMetrics(name string, registerer prometheus.Registerer) (*ParserMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	parseCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_parse_total",
			Help: "Total number of config parses",
		},
		[]string{"operation", "status"},
	)
	lineCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_lines_total",
			Help: "Total number of config lines by kind",
		},
		[]string{"kind"},
	)
	parseDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_parse_duration_seconds",
			Help:    "Duration of config parses in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	var err error
	metrics := &ParserMetrics{}
	if metrics.parseCounter, err = register(registerer, parseCounter); err != nil {
		return nil, err
	}
	if metrics.lineCounter, err = register(registerer, lineCounter); err != nil {
		return nil, err
	}
	if metrics.parseDuration, err = register(registerer, parseDuration); err != nil {
		return nil, err
	}
	return metrics, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "prometheus register failed")
	}
	return c, nil
}

// ObservableParser 为 Parser 添加指标、追踪和日志
type ObservableParser struct {
	parser *Parser

	logger        logger.Logger
	metrics       *ParserMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableParserWithOptions(options *ObservableParserOptions) (*ObservableParser, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	parser, err := NewParserWithOptions(&options.Parser)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create parser")
	}

	name := options.Name
	if name == "" {
		name = "configster"
	}

	obs := &ObservableParser{
		parser:        parser,
		name:          name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		obs.logger = l.WithGroup("observableParser")
	}

	if options.EnableMetrics {
		if obs.metrics, err = NewParserMetrics(name, options.Registerer); err != nil {
			return nil, errors.WithMessage(err, "failed to create metrics")
		}
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("configster.%s", name))
	}

	return obs, nil
}

// Parser 返回被包装的解析器
func (obs *ObservableParser) Parser() *Parser {
	return obs.parser
}

func (obs *ObservableParser) ParseFile(ctx context.Context, path string) (Records, error) {
	var records Records
	err := obs.observe(ctx, "parseFile", path, func(ctx context.Context) (Stats, error) {
		var stats Stats
		var err error
		records, stats, err = obs.parser.ParseFileWithStats(path)
		return stats, err
	})
	return records, err
}

func (obs *ObservableParser) ParseSource(ctx context.Context, src Source) (Records, error) {
	var records Records
	err := obs.observe(ctx, "parseSource", src.Name(), func(ctx context.Context) (Stats, error) {
		var stats Stats
		var err error
		records, stats, err = obs.parser.ParseSourceWithStats(ctx, src)
		return stats, err
	})
	return records, err
}

func (obs *ObservableParser) Parse(ctx context.Context, r io.Reader) (Records, error) {
	var records Records
	err := obs.observe(ctx, "parse", "<reader>", func(ctx context.Context) (Stats, error) {
		var stats Stats
		var err error
		records, stats, err = obs.parser.ParseWithStats(r)
		return stats, err
	})
	return records, err
}

func (obs *ObservableParser) observe(ctx context.Context, operation string, source string, fn func(context.Context) (Stats, error)) error {
	start := time.Now()
	// 同一次解析的日志和 span 用 parse_id 关联
	parseID := uuid.NewString()

	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("configster.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
				attribute.String("source", source),
				attribute.String("parse_id", parseID),
			),
		)
		defer span.End()
	}

	stats, err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(
			attribute.Int64("duration_ms", duration.Milliseconds()),
			attribute.Int("lines", stats.Lines),
			attribute.Int("records", stats.Records),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.parseCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.parseDuration.WithLabelValues(operation).Observe(duration.Seconds())
		obs.metrics.lineCounter.WithLabelValues(LineBlank.String()).Add(float64(stats.Blank))
		obs.metrics.lineCounter.WithLabelValues(LineComment.String()).Add(float64(stats.Comment))
		obs.metrics.lineCounter.WithLabelValues(LineMalformed.String()).Add(float64(stats.Malformed))
		obs.metrics.lineCounter.WithLabelValues(LineRecord.String()).Add(float64(stats.Records))
	}

	if obs.enableLogging && obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "parse failed",
				"component", obs.name,
				"operation", operation,
				"source", source,
				"parse_id", parseID,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.InfoContext(ctx, "parse completed",
				"component", obs.name,
				"operation", operation,
				"source", source,
				"parse_id", parseID,
				"duration_ms", duration.Milliseconds(),
				"records", stats.Records,
				"malformed", stats.Malformed,
			)
		}
	}

	return err
}
