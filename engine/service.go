package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/rushteam/hybridrec/config"
)

// Retrainer 是 RetrainService 需要的引擎能力。
type Retrainer interface {
	// RetrainPending 在有待训练事件时重训，返回是否发生了重训
	RetrainPending(ctx context.Context) (bool, error)
}

// RetrainService 把 interval 重训策略包装为 suture.Service。
type RetrainService struct {
	engine   Retrainer
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewRetrainService 创建周期重训服务，interval <= 0 时使用一分钟。
func NewRetrainService(engine Retrainer, interval time.Duration, logger zerolog.Logger) *RetrainService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RetrainService{
		engine:   engine,
		interval: interval,
		logger:   logger.With().Str("service", "retrain").Logger(),
		name:     "retrain-service",
	}
}

// Serve 实现 suture.Service。重训失败只记录日志，下一个周期重试。
func (s *RetrainService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("retrain service starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retrain service shutting down")
			return ctx.Err()

		case <-ticker.C:
			start := time.Now()
			retrained, err := s.engine.RetrainPending(ctx)
			if err != nil {
				s.logger.Warn().Err(err).Msg("scheduled retrain failed")
				continue
			}
			if retrained {
				s.logger.Debug().Dur("duration", time.Since(start)).Msg("scheduled retrain complete")
			}
		}
	}
}

// String 返回服务名，用于 suture 日志。
func (s *RetrainService) String() string {
	return s.name
}

// Supervisor 返回运行引擎后台任务的 suture.Supervisor；
// interval 策略下包含 RetrainService，其他策略下为空树。
func (e *Engine) Supervisor() *suture.Supervisor {
	sup := suture.New("hybridrec", suture.Spec{
		EventHook: func(ev suture.Event) {
			e.logger.Warn().Fields(ev.Map()).Msg(ev.String())
		},
	})
	if e.settings.Retrain.Policy == config.RetrainInterval {
		sup.Add(NewRetrainService(e, e.settings.Retrain.Interval, e.logger))
	}
	return sup
}
